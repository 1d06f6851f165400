package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:           "development",
		Port:          "8375",
		DBDriver:      "postgres",
		DBHost:        "localhost",
		DBName:        "warbler",
		DBPassword:    "secure-password",
		SessionSecret: "secure-secret-at-least-32-chars-long",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(_ *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing session secret", func(c *Config) { c.SessionSecret = "" }, true},
		{"postgres without url or host", func(c *Config) { c.DBHost = ""; c.DatabaseURL = "" }, true},
		{"postgres with url only", func(c *Config) { c.DBHost = ""; c.DatabaseURL = "postgres://u:p@db/warbler" }, false},
		{"sqlite needs no host", func(c *Config) { c.DBDriver = "sqlite"; c.DBHost = "" }, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"negative message length", func(c *Config) { c.MessageMaxLength = -1 }, true},
		{"timeline limit at the query cap", func(c *Config) { c.TimelineLimit = 100 }, false},
		{"timeline limit above the query cap", func(c *Config) { c.TimelineLimit = 150 }, true},
		{"production default secret", func(c *Config) { c.Env = "production"; c.SessionSecret = defaultSessionSecret }, true},
		{"production short secret", func(c *Config) { c.Env = "prod"; c.SessionSecret = "short" }, true},
		{"production default db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production strong settings", func(c *Config) { c.Env = "production" }, false},
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

func TestConfig_Derived(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 140, c.MessageLimit())
	assert.Equal(t, 100, c.TimelineCap())
	assert.Equal(t, 7*24*time.Hour, c.SessionTTL())

	c = &Config{MessageMaxLength: 200, TimelineLimit: 20, SessionTTLHours: 2}
	assert.Equal(t, 200, c.MessageLimit())
	assert.Equal(t, 20, c.TimelineCap())
	assert.Equal(t, 2*time.Hour, c.SessionTTL())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("MESSAGE_MAX_LENGTH", "280")
	t.Setenv("DB_DRIVER", "sqlite")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, 280, c.MessageMaxLength)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 100, c.TimelineLimit)
	assert.Equal(t, "8375", c.Port)
}
