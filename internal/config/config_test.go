package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:      "secure-secret-at-least-32-chars-long",
		JWTExpiresIn:   time.Hour,
		Port:           "3000",
		DBDriver:       DriverPostgres,
		DatabaseURL:    "host=localhost",
		UploadMaxBytes: 1024,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid", func(_ *Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"zero expiry", func(c *Config) { c.JWTExpiresIn = 0 }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mongo" }, true},
		{"missing dsn", func(c *Config) { c.DatabaseURL = "" }, true},
		{"zero upload limit", func(c *Config) { c.UploadMaxBytes = 0 }, true},
		{"proxy header without trusted proxies", func(c *Config) { c.ProxyHeader = "X-Forwarded-For" }, true},
		{"proxy header with trusted proxies", func(c *Config) {
			c.ProxyHeader = "X-Forwarded-For"
			c.TrustedProxies = "10.0.0.0/8"
		}, false},
		{"short secret in development", func(c *Config) { c.JWTSecret = "short" }, false},
		{"short secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "short"
		}, true},
		{"sqlite in production", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = DriverSQLite
		}, true},
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

func TestConfig_TrustedProxyList(t *testing.T) {
	c := &Config{TrustedProxies: " 10.0.0.1, ,172.16.0.0/12 "}
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, c.TrustedProxyList())
	assert.Empty(t, (&Config{}).TrustedProxyList())
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("JWT_SECRET")
	os.Unsetenv("JWT_SECRET")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("JWT_SECRET")
	defer os.Unsetenv("JWT_EXPIRES_IN")
	defer os.Unsetenv("DB_DRIVER")

	os.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-000000")
	os.Setenv("JWT_EXPIRES_IN", "30m")
	os.Setenv("DB_DRIVER", "  SQLite ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-secret-that-is-long-enough-000000", c.JWTSecret)
	assert.Equal(t, 30*time.Minute, c.JWTExpiresIn)
	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, int64(4*1024*1024), c.UploadMaxBytes)
}
