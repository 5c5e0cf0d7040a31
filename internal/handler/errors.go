package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"libraryadmin/internal/apperrors"
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{apperrors.ErrNotFound, http.StatusNotFound},
	{apperrors.ErrValidation, http.StatusBadRequest},
	{apperrors.ErrInvalidState, http.StatusBadRequest},
	{apperrors.ErrConflict, http.StatusConflict},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized},
	{apperrors.ErrForbidden, http.StatusForbidden},
	{apperrors.ErrGateway, http.StatusBadGateway},
	{apperrors.ErrStorage, http.StatusInternalServerError},
}

func statusFor(err error) int {
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// fail writes the error response for err. Server-side failures are logged with their cause
// and never leak it to the client.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := apperrors.Message(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("route", c.FullPath()).Int("status", status).Msg("request failed")
		var ae *apperrors.Error
		if !errors.As(err, &ae) {
			msg = "internal server error"
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bind decodes the JSON body into dst and reports binding failures as a 400.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperrors.Validation("%s", strings.Join(msgs, "; "))
	}
	return apperrors.Validation("invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "month":
		return fe.Field() + " must be YYYY-MM"
	case "date":
		return fe.Field() + " must be YYYY-MM-DD"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
