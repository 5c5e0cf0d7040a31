package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("save student", cause)

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "save student: connection reset", err.Error())
	assert.Equal(t, "save student", Message(err))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "student 42 not found", Message(NotFound("student %s not found", "42")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "conflict", Message(&Error{Kind: ErrConflict}))
}
