package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])

	body, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{"students", "admins", "notices", "expenses"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestNilHandlesAreUnhealthy(t *testing.T) {
	var db *DB
	var r *Redis
	assert.False(t, db.Healthy(context.Background()))
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, db.Close())
	assert.NoError(t, r.Close())
}
