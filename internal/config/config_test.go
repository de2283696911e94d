package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := writeFile(t, "agrotwin.yaml", `
server:
  port: 5100
  latency: 25ms
auth:
  strict_passwords: true
delays:
  checkout: 500ms
events:
  kafka:
    brokers: [kafka-1:9092, kafka-2:9092]
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 5100, cfg.Server.Port)
	assert.Equal(t, 25*time.Millisecond, cfg.Server.Latency)
	assert.True(t, cfg.Auth.StrictPasswords)
	assert.Equal(t, 500*time.Millisecond, cfg.Delays.Checkout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Kafka.Brokers)

	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, time.Second, cfg.Delays.Login)
	assert.Equal(t, "agrotwin.events", cfg.Events.Kafka.Topic)
	assert.Equal(t, 2*time.Second, cfg.Events.Kafka.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFromJSON(t *testing.T) {
	path := writeFile(t, "agrotwin.json", `{"server": {"port": 6100}, "events": {"webhook": {"url": "http://localhost:9999/hooks"}}}`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 6100, cfg.Server.Port)
	assert.Equal(t, "http://localhost:9999/hooks", cfg.Events.Webhook.URL)
}

func TestLoadFromErrors(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFrom(writeFile(t, "bad.yaml", "server: [unclosed"))
	assert.ErrorContains(t, err, "parsing config")

	_, err = LoadFrom(writeFile(t, "bad-duration.yaml", "delays:\n  login: soon\n"))
	assert.Error(t, err)
}

func TestLoadExplicitMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"PORT":                    "8080",
		"AGROTWIN_JWT_SECRET":     "0123456789abcdef0123",
		"AGROTWIN_STRICT_AUTH":    "true",
		"KAFKA_BROKERS":           " broker-a:9092, ,broker-b:9092 ",
		"AGROTWIN_WEBHOOK_URL":    "http://hooks.local/in",
		"AGROTWIN_WEBHOOK_SECRET": "whsec_local",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0123456789abcdef0123", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.StrictPasswords)
	assert.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, "http://hooks.local/in", cfg.Events.Webhook.URL)
	assert.Equal(t, "whsec_local", cfg.Events.Webhook.Secret)
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	assert.Error(t, Default().ApplyEnv(env(map[string]string{"PORT": "http"})))
	assert.Error(t, Default().ApplyEnv(env(map[string]string{"AGROTWIN_STRICT_AUTH": "maybe"})))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"fail rate", func(c *Config) { c.Server.FailRate = 1.5 }, "fail_rate"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "token_ttl"},
		{"delay", func(c *Config) { c.Delays.Checkout = -time.Second }, "delays"},
		{"kafka topic", func(c *Config) { c.Events.Kafka = KafkaConfig{Brokers: []string{"b:9092"}} }, "topic"},
		{"kafka timeout", func(c *Config) { c.Events.Kafka.Timeout = -time.Second }, "kafka.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := Default()
	cfg.Server.Port = -1
	cfg.Server.FailRate = 2
	err := cfg.Validate()
	assert.ErrorContains(t, err, "server.port")
	assert.ErrorContains(t, err, "fail_rate")
}
