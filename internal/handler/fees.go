package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryadmin/internal/receipt"
	"libraryadmin/internal/student"
)

func (h *Handler) upsertFee(c *gin.Context) {
	var in student.FeeInput
	if !h.bind(c, &in) {
		return
	}
	st, rec, err := h.Students.UpsertFee(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee updated", "fee": rec, "fees": st.Fees})
}

func (h *Handler) markFeePaid(c *gin.Context) {
	var req struct {
		Month  string  `json:"month" binding:"required,month"`
		Amount float64 `json:"amount" binding:"gte=0"`
	}
	if !h.bind(c, &req) {
		return
	}
	_, rec, err := h.Students.MarkFeePaid(c.Request.Context(), c.Param("id"), req.Month, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee marked as paid", "fee": rec})
}

func (h *Handler) downloadReceipt(c *gin.Context) {
	var req struct {
		Month    string `json:"month"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Month == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month and password are required"})
		return
	}
	st, fee, err := h.Students.PaidFee(c.Request.Context(), req.Password, req.Month)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	lh := receipt.Letterhead{
		Name:      h.Library.Name,
		Address:   h.Library.Address,
		Contact:   h.Library.Contact,
		AssetsDir: h.Library.AssetsDir,
	}
	if err := receipt.Render(&buf, lh, st, fee); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, receipt.Filename(st, fee.Month)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
