package notice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryadmin/internal/apperrors"
)

func TestNoticeBoard(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	_, err := svc.Add(ctx, "   ")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	first, err := svc.Add(ctx, "Library closed on Sunday")
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	_, err = svc.Add(ctx, "New books arrived")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New books arrived", list[0].Text)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, first.ID), apperrors.ErrNotFound))
}
