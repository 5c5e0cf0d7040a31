package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"libraryadmin/internal/account"
	"libraryadmin/internal/auth"
	"libraryadmin/internal/config"
	"libraryadmin/internal/geo"
	"libraryadmin/internal/handler"
	"libraryadmin/internal/httpmiddleware"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/mailer"
	"libraryadmin/internal/notice"
	"libraryadmin/internal/otp"
	"libraryadmin/internal/queue"
	"libraryadmin/internal/sms"
	"libraryadmin/internal/store"
	"libraryadmin/internal/student"
)

func main() {
	cfg := config.Load()
	logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]handler.HealthCheck{}

	var (
		studentRepo student.Repository = student.NewMemoryRepository()
		accountRepo account.Repository = account.NewMemoryRepository()
		noticeRepo  notice.Repository  = notice.NewMemoryRepository()
		adminRepo   auth.Repository    = auth.NewMemoryRepository()
	)
	if cfg.StoreBackend == "postgres" {
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		studentRepo = student.NewPostgresRepository(db.Client)
		accountRepo = account.NewPostgresRepository(db.Client)
		noticeRepo = notice.NewPostgresRepository(db.Client)
		adminRepo = auth.NewPostgresRepository(db.Client)
		health["db"] = db.Healthy
	} else {
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" || cfg.OTPBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
	}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	} else {
		q = queue.NewInMemory(256)
	}

	var otps otp.Store
	if cfg.OTPBackend == "redis" {
		otps = otp.NewRedisStore(redisClient.Client)
	} else {
		otps = otp.NewMemoryStore()
	}

	var mail mailer.Sender
	if cfg.Mail.SendgridAPIKey != "" {
		mail = mailer.NewSendgrid(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.From)
	} else {
		logger.Warn().Msg("SENDGRID_API_KEY not set; emails are logged, not sent")
		mail = mailer.NewConsole()
	}
	smsClient := sms.New(cfg.SMS)

	var opts []student.Option
	if cfg.Library.GeofenceEnabled {
		opts = append(opts, student.WithGeofence(geo.Fence{
			Center:       geo.Point{Latitude: cfg.Library.Latitude, Longitude: cfg.Library.Longitude},
			RadiusMeters: cfg.Library.GeofenceRadiusMeters,
		}))
	}
	students := student.NewService(studentRepo, opts...)
	tokens := auth.NewTokens(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)

	deps := handler.Deps{
		Students:          students,
		Accounts:          account.NewService(accountRepo, students),
		Notices:           notice.NewService(noticeRepo),
		Auth:              auth.NewService(adminRepo, tokens, otps, cfg.OTPTTL, mail, smsClient),
		Messages:          sms.NewDispatcher(smsClient, q),
		Library:           cfg.Library,
		CredentialLimiter: httpmiddleware.NewTokenBucket(cfg.CredentialRateLimitPerMin, cfg.CredentialRateLimitPerMin),
		Health:            health,
	}
	if cfg.AuthRequired {
		deps.Tokens = tokens
	} else {
		logger.Warn().Msg("AUTH_REQUIRED=false; admin routes are open")
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger.With("http"), "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware(httpmiddleware.ByClientIP))

	handler.New(deps).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}
	logger.Info().Msg("server exited")
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AddAllowHeaders("Authorization", "Accept")
	cfg.AddAllowMethods("PATCH")
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	cfg.MaxAge = 24 * time.Hour
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
