package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     3306,
		Username: "root",
		Password: "secret",
		Database: "shop",
		Timeout:  30 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing host", func(c *Config) { c.Host = "" }, "host is required"},
		{"zero port", func(c *Config) { c.Port = 0 }, "port must be between"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port must be between"},
		{"missing username", func(c *Config) { c.Username = "" }, "username is required"},
		{"missing database", func(c *Config) { c.Database = "" }, "database name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidateDefaultsTimeout(t *testing.T) {
	config := validConfig()
	config.Timeout = 0

	assert.NoError(t, config.Validate())
	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestConfigSetDefaults(t *testing.T) {
	var config Config
	config.SetDefaults()

	assert.Equal(t, 3306, config.Port)
	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestConfigDSN(t *testing.T) {
	config := validConfig()
	assert.Equal(t, "root:secret@tcp(localhost:3306)/shop?timeout=30s&parseTime=true", config.DSN())
}

func TestConfigIdentityOmitsPassword(t *testing.T) {
	config := validConfig()
	identity := config.Identity()

	assert.Equal(t, "root@localhost:3306/shop", identity)
	assert.NotContains(t, identity, "secret")
}
