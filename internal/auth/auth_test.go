package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/mailer"
	"libraryadmin/internal/otp"
)

type smsSpy struct{ numbers []string }

func (s *smsSpy) Send(_ context.Context, numbers []string, _ string) error {
	s.numbers = append(s.numbers, numbers...)
	return nil
}

func newTestService() (*Service, *mailer.Console, *smsSpy) {
	mail := mailer.NewConsole()
	spy := &smsSpy{}
	tokens := NewTokens("library-admin", "test-key", time.Hour, 24*time.Hour)
	return NewService(NewMemoryRepository(), tokens, otp.NewMemoryStore(), 5*time.Minute, mail, spy), mail, spy
}

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Register(ctx, RegisterInput{Email: "Admin@Example.com", Username: "admin", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "admin@example.com", Username: "other", Password: "secret1"})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	_, _, err = svc.Login(ctx, "admin", "wrong")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	_, _, err = svc.Login(ctx, "nobody", "secret1")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	a, pair, err := svc.Login(ctx, "admin", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", a.Email)

	claims, err := svc.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = svc.tokens.ParseAccess(pair.RefreshToken)
	assert.Error(t, err, "refresh token is not an access token")

	refreshed, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRegistrationOpenUntilFirstAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	open, err := svc.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	_, err = svc.Register(ctx, RegisterInput{Email: "owner@example.com", Username: "owner", Password: "secret1"})
	require.NoError(t, err)

	open, err = svc.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestOTPReset(t *testing.T) {
	ctx := context.Background()
	svc, mail, spy := newTestService()
	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "a", Password: "secret1", Mobile: "9999999999"})
	require.NoError(t, err)

	assert.True(t, errors.Is(svc.SendOTP(ctx, "missing@example.com"), apperrors.ErrNotFound))

	require.NoError(t, svc.SendOTP(ctx, "a@example.com"))
	require.Len(t, mail.Sent(), 1)
	assert.Equal(t, []string{"9999999999"}, spy.numbers)
	code := otpPattern.FindString(mail.Sent()[0].Text)
	require.NotEmpty(t, code)

	err = svc.ResetPassword(ctx, "a@example.com", "000000", "newpass")
	if code != "000000" {
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	}

	require.NoError(t, svc.ResetPassword(ctx, "a@example.com", code, "newpass"))
	err = svc.ResetPassword(ctx, "a@example.com", code, "another")
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "otp is single use")

	_, _, err = svc.Login(ctx, "a", "newpass")
	assert.NoError(t, err)
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens("library-admin", "test-key", time.Hour, time.Hour)
	r := gin.New()
	r.GET("/admin", AdminAuth(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	pair, err := tokens.Issue("id-1", "admin", RoleAdmin)
	require.NoError(t, err)
	other, err := tokens.Issue("id-2", "guest", "viewer")
	require.NoError(t, err)
	foreign, err := NewTokens("library-admin", "other-key", time.Hour, time.Hour).Issue("id-1", "admin", RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage"))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+foreign.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+pair.RefreshToken))
	assert.Equal(t, http.StatusForbidden, do("Bearer "+other.AccessToken))
	assert.Equal(t, http.StatusNoContent, do("Bearer "+pair.AccessToken))
}

func TestExpiredToken(t *testing.T) {
	tokens := NewTokens("library-admin", "k", time.Minute, time.Hour)
	past := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return past }
	pair, err := tokens.Issue("id", "admin", RoleAdmin)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}
