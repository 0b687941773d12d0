package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                   "8080",
		Env:                    "development",
		DBDriver:               "postgres",
		ContactRateLimit:       5,
		LikeRateLimit:          30,
		RateLimitWindowSeconds: 3600,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development config", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Sqlite driver", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"Zero contact limit", func(c *Config) { c.ContactRateLimit = 0 }, true},
		{"Negative like limit", func(c *Config) { c.LikeRateLimit = -1 }, true},
		{"Zero window", func(c *Config) { c.RateLimitWindowSeconds = 0 }, true},
		{"Production without secrets still loads", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	for env, want := range map[string]bool{
		"production":  true,
		"prod":        true,
		"development": false,
		"test":        false,
		"":            false,
	} {
		c := &Config{Env: env}
		assert.Equal(t, want, c.IsProduction(), env)
	}
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("LIKE_RATE_LIMIT", "3")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 3, c.LikeRateLimit)
	assert.Equal(t, 3600, c.RateLimitWindowSeconds)
	assert.False(t, c.IsProduction())
}
