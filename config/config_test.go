package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LOGIN_RATE_PER_SEC", "")
	t.Setenv("LOGIN_BURST", "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("MINIO_ENDPOINT", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.MediaEnabled())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSecret)
	assert.True(t, cfg.RateLimitEnabled())
	assert.Equal(t, 5, cfg.LoginBurst)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("TOKEN_TTL", "5m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("LOGIN_RATE_PER_SEC", "0")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.MediaEnabled())
	assert.True(t, cfg.MinioUseSSL)
	assert.False(t, cfg.RateLimitEnabled())
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("BCRYPT_COST", "many")
	t.Setenv("MINIO_USE_SSL", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.MinioUseSSL)
}
