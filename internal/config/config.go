// Package config loads the agrotwin configuration from agrotwin.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "agrotwin.yaml"

// Config is the contents of agrotwin.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Delays  DelayConfig   `yaml:"delays"`
	Events  EventsConfig  `yaml:"events"`
	Catalog CatalogConfig `yaml:"catalog"`
}

type ServerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Latency  time.Duration `yaml:"latency"`
	FailRate float64       `yaml:"fail_rate"`
	Verbose  bool          `yaml:"verbose"`
	// FrozenClock pins simulated time at startup so only admin time travel
	// and simulated delays move it.
	FrozenClock bool `yaml:"frozen_clock"`
}

type AuthConfig struct {
	// JWTSecret signs session tokens. Empty means a random per-process secret.
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	StrictPasswords bool          `yaml:"strict_passwords"`
}

// DelayConfig holds the simulated round trips of login, registration and
// checkout.
type DelayConfig struct {
	Login    time.Duration `yaml:"login"`
	Register time.Duration `yaml:"register"`
	Checkout time.Duration `yaml:"checkout"`
}

type EventsConfig struct {
	// Log writes every domain event to the debug log.
	Log     bool          `yaml:"log"`
	Webhook WebhookConfig `yaml:"webhook"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

type WebhookConfig struct {
	URL         string        `yaml:"url"`
	Secret      string        `yaml:"secret"`
	AutoDeliver bool          `yaml:"auto_deliver"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// KafkaConfig enables the Kafka publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// Timeout bounds each publish, which runs on the request path.
	Timeout time.Duration `yaml:"timeout"`
}

type CatalogConfig struct {
	// Path replaces the embedded seed with a YAML file.
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 4100},
		Auth:   AuthConfig{TokenTTL: 24 * time.Hour},
		Delays: DelayConfig{Login: time.Second, Register: time.Second, Checkout: 2 * time.Second},
		Events: EventsConfig{
			Log:     true,
			Webhook: WebhookConfig{MaxRetries: 3, RetryDelay: time.Second},
			Kafka:   KafkaConfig{Topic: "agrotwin.events", Timeout: 2 * time.Second},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path tries DefaultConfigFile and falls back
// to the defaults when it does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads one file over the defaults. JSON files parse as well, being
// valid YAML.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("AGROTWIN_JWT_SECRET"); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookup("AGROTWIN_STRICT_AUTH"); ok && v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AGROTWIN_STRICT_AUTH: %w", err)
		}
		c.Auth.StrictPasswords = strict
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Events.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("AGROTWIN_WEBHOOK_URL"); ok && v != "" {
		c.Events.Webhook.URL = v
	}
	if v, ok := lookup("AGROTWIN_WEBHOOK_SECRET"); ok && v != "" {
		c.Events.Webhook.Secret = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Latency < 0 {
		errs = append(errs, fmt.Errorf("server.latency must not be negative"))
	}
	if c.Server.FailRate < 0 || c.Server.FailRate > 1 {
		errs = append(errs, fmt.Errorf("server.fail_rate must be between 0.0 and 1.0"))
	}
	if s := c.Auth.JWTSecret; s != "" && len(s) < 16 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 16 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be positive"))
	}
	if c.Delays.Login < 0 || c.Delays.Register < 0 || c.Delays.Checkout < 0 {
		errs = append(errs, fmt.Errorf("delays must not be negative"))
	}
	if len(c.Events.Kafka.Brokers) > 0 && c.Events.Kafka.Topic == "" {
		errs = append(errs, fmt.Errorf("events.kafka.topic is required with brokers"))
	}
	if c.Events.Kafka.Timeout < 0 {
		errs = append(errs, fmt.Errorf("events.kafka.timeout must not be negative"))
	}
	if c.Events.Webhook.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("events.webhook.max_retries must not be negative"))
	}
	return errors.Join(errs...)
}
