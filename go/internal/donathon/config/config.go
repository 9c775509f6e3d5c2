package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mcdev12/donathon/go/internal/donathon/message"
	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/mcdev12/donathon/go/internal/donathon/sequencer"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn error"`
	Server    ServerConfig    `yaml:"server"`
	NATS      NATSConfig      `yaml:"nats"`
	Redis     RedisConfig     `yaml:"redis"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Sequencer SequencerConfig `yaml:"sequencer"`

	// Messages overrides the built-in notification templates by kind and platform
	Messages map[string]map[string]string `yaml:"messages"`
}

type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url" validate:"required_if=Enabled true"`
	Stream        string        `yaml:"stream" validate:"required_if=Enabled true"`
	Consumer      string        `yaml:"consumer" validate:"required_if=Enabled true"`
	SubjectPrefix string        `yaml:"subject_prefix" validate:"required,excludesall=*>"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" validate:"gte=0"`
}

// RedisConfig points at the hash the host mirrors its userstore into. An empty
// Addr disables the snapshot source.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Key      string `yaml:"key" validate:"required_with=Addr"`
}

type OverlayConfig struct {
	PointsLabel    string        `yaml:"points_label" validate:"required"`
	RenderDebounce time.Duration `yaml:"render_debounce" validate:"gte=0"`
}

type SequencerConfig struct {
	ShowDuration time.Duration `yaml:"show_duration" validate:"gt=0"`
	GapDuration  time.Duration `yaml:"gap_duration" validate:"gte=0"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port: "8082",
		},
		NATS: NATSConfig{
			Enabled:       true,
			URL:           "nats://localhost:4222",
			Stream:        "DONATHON",
			Consumer:      "donathon-overlay",
			SubjectPrefix: "donathon",
			ReconnectWait: 2 * time.Second,
		},
		Redis: RedisConfig{
			Key: "donathon:userstore",
		},
		Overlay: OverlayConfig{
			PointsLabel:    overlay.DefaultPointsLabel,
			RenderDebounce: overlay.DefaultRenderDebounce,
		},
		Sequencer: SequencerConfig{
			ShowDuration: sequencer.DefaultShowDuration,
			GapDuration:  sequencer.DefaultGapDuration,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and environment overrides, in that order, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Server.Port = getEnv("OVERLAY_PORT", c.Server.Port)

	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Stream = getEnv("NATS_STREAM", c.NATS.Stream)
	c.NATS.Consumer = getEnv("NATS_CONSUMER", c.NATS.Consumer)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Key = getEnv("REDIS_KEY", c.Redis.Key)

	c.Overlay.PointsLabel = getEnv("POINTS_LABEL", c.Overlay.PointsLabel)
	c.Overlay.RenderDebounce = getEnvAsDuration("RENDER_DEBOUNCE", c.Overlay.RenderDebounce)
}

// Validate checks field constraints and the message template keys
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Templates(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Templates returns the built-in templates with the configured messages applied on top
func (c *Config) Templates() (message.Templates, error) {
	overrides := make(message.Templates, len(c.Messages))
	for kindName, byPlatform := range c.Messages {
		kind, err := message.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
		overrides[kind] = make(map[string]string, len(byPlatform))
		for platform, tmpl := range byPlatform {
			overrides[kind][message.NormalizePlatform(platform)] = tmpl
		}
	}
	return message.DefaultTemplates().Merge(overrides), nil
}

// BridgeOptions maps the overlay section onto bridge options
func (c *Config) BridgeOptions() (overlay.Options, error) {
	templates, err := c.Templates()
	if err != nil {
		return overlay.Options{}, err
	}
	return overlay.Options{
		PointsLabel:    c.Overlay.PointsLabel,
		RenderDebounce: c.Overlay.RenderDebounce,
		Templates:      templates,
	}, nil
}

// SequencerTiming maps the sequencer section onto sequencer timing
func (c *Config) SequencerTiming() sequencer.Config {
	return sequencer.Config{
		ShowDuration: c.Sequencer.ShowDuration,
		GapDuration:  c.Sequencer.GapDuration,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
