package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validProdConfig() *Config {
	return &Config{
		Port:       "8460",
		JWTSecret:  "a-very-long-production-secret-of-32+",
		DBPassword: "s3cure-db-password",
		DBSSLMode:  "require",
		Env:        "production",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid production config", func(t *testing.T) {
		assert.NoError(t, validProdConfig().Validate())
	})

	t.Run("missing port", func(t *testing.T) {
		cfg := validProdConfig()
		cfg.Port = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("default jwt secret rejected in production", func(t *testing.T) {
		cfg := validProdConfig()
		cfg.JWTSecret = "your-secret-key-change-in-production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("short jwt secret rejected in production", func(t *testing.T) {
		cfg := validProdConfig()
		cfg.JWTSecret = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("weak db password rejected in production", func(t *testing.T) {
		cfg := validProdConfig()
		cfg.DBPassword = "password"
		assert.Error(t, cfg.Validate())
	})

	t.Run("development tolerates defaults", func(t *testing.T) {
		cfg := &Config{
			Port:      "8460",
			JWTSecret: "your-secret-key-change-in-production",
			Env:       "development",
		}
		assert.NoError(t, cfg.Validate())
	})
}
