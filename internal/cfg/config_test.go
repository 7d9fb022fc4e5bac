package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/docshelf")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/docshelf", c.DatabaseURL)
	assert.Equal(t, "nats://127.0.0.1:4222", c.NatsURL)
	assert.Equal(t, "redis://127.0.0.1:6379/0", c.RedisURL)
	assert.Equal(t, 48*time.Hour, c.TaskStatusTTL)
	assert.Empty(t, c.AdminUsername)
	assert.Empty(t, c.AdminEmail)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAdminCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/docshelf")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("TASK_STATUS_TTL", "1h30m")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin", c.AdminUsername)
	assert.Equal(t, "admin@example.com", c.AdminEmail)
	assert.Equal(t, "s3cret", c.AdminPassword)
	assert.Equal(t, 90*time.Minute, c.TaskStatusTTL)
}
