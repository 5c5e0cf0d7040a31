package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryadmin/internal/apperrors"
)

func TestGenerate(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0])
	}
}

func TestMemoryStoreSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "admin@example.com", "123456", time.Minute))

	err := s.Consume(ctx, "admin@example.com", "000000")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	require.NoError(t, s.Consume(ctx, "admin@example.com", "123456"))
	err = s.Consume(ctx, "admin@example.com", "123456")
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "second use rejected")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "a", "111111", 5*time.Minute))
	now = now.Add(5 * time.Minute)
	assert.Error(t, s.Consume(ctx, "a", "111111"))

	require.NoError(t, s.Put(ctx, "b", "222222", 5*time.Minute))
	assert.Len(t, s.entries, 1)
}
