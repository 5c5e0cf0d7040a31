package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"libraryadmin/internal/auth"
)

// registrationGuard lets the first admin register anonymously. Once an admin exists the
// caller must present an admin token.
func (h *Handler) registrationGuard() gin.HandlerFunc {
	if h.Tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	requireAdmin := auth.AdminAuth(h.Tokens)
	return func(c *gin.Context) {
		open, err := h.Auth.RegistrationOpen(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		if open {
			c.Next()
			return
		}
		requireAdmin(c)
	}
}

func (h *Handler) register(c *gin.Context) {
	var in auth.RegisterInput
	if !h.bind(c, &in) {
		return
	}
	a, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully", "admin": a})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	a, pair, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "username": a.Username, "email": a.Email, "tokens": pair})
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	pair, err := h.Auth.Refresh(req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) sendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	if err := h.Auth.SendOTP(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		OTP         string `json:"otp" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (h *Handler) listNotices(c *gin.Context) {
	all, err := h.Notices.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *Handler) addNotice(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	n, err := h.Notices.Add(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Notice added", "notice": n})
}

func (h *Handler) deleteNotice(c *gin.Context) {
	if err := h.Notices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notice deleted"})
}

func (h *Handler) addExpense(c *gin.Context) {
	var req struct {
		Category string  `json:"category" binding:"required"`
		Amount   float64 `json:"amount" binding:"required,gt=0"`
		Date     string  `json:"date" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	e, err := h.Accounts.AddExpense(c.Request.Context(), req.Category, req.Amount, req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Expense added successfully", "expense": e})
}

func (h *Handler) listExpenses(c *gin.Context) {
	all, err := h.Accounts.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *Handler) monthlySummary(c *gin.Context) {
	sum, err := h.Accounts.MonthlySummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req struct {
		Mobile  string `json:"mobile" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	if err := h.Messages.SendNow(c.Request.Context(), req.Mobile, req.Message); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message sent successfully"})
}

// broadcast queues the message for every enabled student, or for the given numbers.
func (h *Handler) broadcast(c *gin.Context) {
	var req struct {
		Message string   `json:"message" binding:"required"`
		Numbers []string `json:"numbers"`
	}
	if !h.bind(c, &req) {
		return
	}
	numbers := req.Numbers
	if len(numbers) == 0 {
		enabled, err := h.Students.Enabled(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		for _, st := range enabled {
			numbers = append(numbers, st.Mobile)
		}
	}
	queued, err := h.Messages.Broadcast(c.Request.Context(), numbers, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Broadcast queued", "queued": queued})
}

func (h *Handler) checkWifi(c *gin.Context) {
	ip := c.ClientIP()
	for _, prefix := range h.Library.WifiPrefixes {
		if strings.HasPrefix(ip, prefix) {
			c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Connected to library Wi-Fi. Attendance allowed."})
			return
		}
	}
	h.log.Info().Str("ip", ip).Msg("wifi check rejected")
	c.JSON(http.StatusForbidden, gin.H{"ok": false, "message": "Not connected to library Wi-Fi. Attendance denied."})
}
