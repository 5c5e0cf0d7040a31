package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryadmin/internal/geo"
	"libraryadmin/internal/student"
)

type entryRequest struct {
	Date      string `json:"date" binding:"required,date"`
	EntryTime string `json:"entryTime" binding:"required"`
}

type exitRequest struct {
	Date     string `json:"date" binding:"required,date"`
	ExitTime string `json:"exitTime" binding:"required"`
}

// sessionSelector picks a session by index or by the recorded time.
type sessionSelector struct {
	Date      string `json:"date"`
	EntryTime string `json:"entryTime"`
	ExitTime  string `json:"exitTime"`
	Index     *int   `json:"index"`
}

type presenceRequest struct {
	Date      string   `json:"date" binding:"required,date"`
	Present   *bool    `json:"present" binding:"required"`
	Password  string   `json:"password"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *Handler) markEntry(c *gin.Context) {
	var req entryRequest
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Students.MarkEntry(c.Request.Context(), c.Param("id"), req.Date, req.EntryTime)
	h.attendanceReply(c, "Entry marked", st, err)
}

func (h *Handler) markExit(c *gin.Context) {
	var req exitRequest
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Students.MarkExit(c.Request.Context(), c.Param("id"), req.Date, req.ExitTime)
	h.attendanceReply(c, "Exit marked", st, err)
}

func (h *Handler) deleteEntry(c *gin.Context) {
	var req sessionSelector
	if !h.bind(c, &req) {
		return
	}
	ref := student.SessionRef{Index: req.Index, Time: req.EntryTime}
	st, err := h.Students.DeleteEntry(c.Request.Context(), c.Param("id"), req.Date, ref)
	h.attendanceReply(c, "Entry deleted", st, err)
}

func (h *Handler) deleteExit(c *gin.Context) {
	var req sessionSelector
	if !h.bind(c, &req) {
		return
	}
	ref := student.SessionRef{Index: req.Index, Time: req.ExitTime}
	st, err := h.Students.DeleteExit(c.Request.Context(), c.Param("id"), req.Date, ref)
	h.attendanceReply(c, "Exit deleted", st, err)
}

func (h *Handler) deleteBlank(c *gin.Context) {
	var req struct {
		Date         string `json:"date" binding:"required"`
		SessionIndex *int   `json:"sessionIndex" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Students.DeleteBlankSession(c.Request.Context(), c.Param("id"), req.Date, *req.SessionIndex)
	h.attendanceReply(c, "Blank session removed", st, err)
}

func (h *Handler) setPresent(c *gin.Context) {
	var req presenceRequest
	if !h.bind(c, &req) {
		return
	}
	in := student.PresenceInput{Date: req.Date, Present: *req.Present, Credential: req.Password}
	if req.Latitude != nil && req.Longitude != nil {
		in.Location = &geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	st, err := h.Students.SetPresent(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated", "attendance": st.Day(req.Date)})
}

func (h *Handler) attendanceReply(c *gin.Context, msg string, st *student.Student, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "attendance": st.Attendance})
}

func (h *Handler) attendanceSummary(c *gin.Context) {
	month, password := c.Query("month"), c.Query("password")
	if month == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month and password are required"})
		return
	}
	sum, err := h.Students.SessionSummaryByMobile(c.Request.Context(), password, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, []student.Summary{sum})
}

func (h *Handler) allSummaries(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month is required"})
		return
	}
	all, err := h.Students.FlagSummaries(c.Request.Context(), month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}
