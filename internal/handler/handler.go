package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"libraryadmin/internal/account"
	"libraryadmin/internal/auth"
	"libraryadmin/internal/config"
	"libraryadmin/internal/httpmiddleware"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/notice"
	"libraryadmin/internal/sms"
	"libraryadmin/internal/student"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Students *student.Service
	Accounts *account.Service
	Notices  *notice.Service
	Auth     *auth.Service
	Messages *sms.Dispatcher
	Library  config.Library

	// Tokens guards admin routes. Nil leaves them open.
	Tokens *auth.Tokens
	// CredentialLimiter throttles endpoints that take a mobile number or password. Nil disables it.
	CredentialLimiter *httpmiddleware.TokenBucket
	Health            map[string]HealthCheck
}

type Handler struct {
	Deps
	log zerolog.Logger
}

func New(d Deps) *Handler {
	registerValidators()
	return &Handler{Deps: d, log: logger.With("http")}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	limited := h.credentialLimit()

	a := api.Group("/auth")
	a.POST("/login", limited, h.login)
	a.POST("/register", h.registrationGuard(), h.register)
	a.POST("/refresh", h.refresh)
	a.POST("/send-otp", limited, h.sendOTP)
	a.POST("/reset-password", limited, h.resetPassword)

	api.GET("/notices", h.listNotices)
	api.GET("/seats-status", h.seatsStatus)
	api.GET("/library/check-wifi", h.checkWifi)

	pub := api.Group("/students")
	pub.POST("/attendance/:id", limited, h.setPresent)
	pub.GET("/attendance-summary", limited, h.attendanceSummary)
	pub.POST("/verify-student-mobile", limited, h.verifyMobile)
	pub.POST("/download-receipt", limited, h.downloadReceipt)

	admin := api.Group("")
	if h.Tokens != nil {
		admin.Use(auth.AdminAuth(h.Tokens))
	}

	st := admin.Group("/students")
	st.POST("", h.createStudent)
	st.GET("", h.listStudents)
	st.GET("/modifications", h.modifications)
	st.GET("/attendance-summary-no-password", h.allSummaries)
	st.POST("/attendance/:id/entry", h.markEntry)
	st.POST("/attendance/:id/exit", h.markExit)
	st.DELETE("/attendance/:id/entry", h.deleteEntry)
	st.DELETE("/attendance/:id/exit", h.deleteExit)
	st.DELETE("/attendance/:id/blank", h.deleteBlank)
	st.POST("/fees/:id", h.upsertFee)
	st.POST("/:id/mark-fee-paid", h.markFeePaid)
	st.GET("/:id", h.getStudent)
	st.PUT("/:id", h.updateStudent)
	st.DELETE("/:id", h.deleteStudent)
	st.PATCH("/:id/status", h.setStatus)

	admin.POST("/notices", h.addNotice)
	admin.DELETE("/notices/:id", h.deleteNotice)

	acc := admin.Group("/accounts")
	acc.POST("/add", h.addExpense)
	acc.GET("/all", h.listExpenses)
	acc.GET("/monthly-summary", h.monthlySummary)

	msg := admin.Group("/send-message")
	msg.POST("", h.sendMessage)
	msg.POST("/broadcast", h.broadcast)
}

func (h *Handler) credentialLimit() gin.HandlerFunc {
	if h.CredentialLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.CredentialLimiter.Middleware(httpmiddleware.ByRouteAndIP)
}

func (h *Handler) healthz(c *gin.Context) {
	out := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		out[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			out["status"] = "degraded"
		}
	}
	c.JSON(status, out)
}
