package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryadmin/internal/student"
)

func (h *Handler) createStudent(c *gin.Context) {
	var in student.NewStudent
	if !h.bind(c, &in) {
		return
	}
	st, err := h.Students.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student added", "student": st})
}

func (h *Handler) listStudents(c *gin.Context) {
	all, err := h.Students.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *Handler) getStudent(c *gin.Context) {
	st, err := h.Students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var p student.Patch
	if !h.bind(c, &p) {
		return
	}
	st, changes, err := h.Students.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	if changes == nil {
		changes = []student.ChangeEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated", "student": st, "changes": changes})
}

func (h *Handler) deleteStudent(c *gin.Context) {
	if err := h.Students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}

func (h *Handler) setStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=enabled disabled"`
	}
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Students.SetStatus(c.Request.Context(), c.Param("id"), student.Status(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student status updated", "student": st})
}

func (h *Handler) verifyMobile(c *gin.Context) {
	var req struct {
		Mobile string `json:"mobile" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Students.VerifyMobile(c.Request.Context(), req.Mobile)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) modifications(c *gin.Context) {
	mods, err := h.Students.Modifications(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mods)
}

func (h *Handler) seatsStatus(c *gin.Context) {
	seats, err := h.Students.Seats(c.Request.Context(), h.Library.TotalSeats, h.Library.Shifts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}
