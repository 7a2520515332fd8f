package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the root configuration for Launchpad.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Maps      MapsConfig      `mapstructure:"maps"`
	Launch    LaunchConfig    `mapstructure:"launch"`
	Plugins   PluginsConfig   `mapstructure:"plugins"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name" validate:"required"`
	LogLevel     string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// MapsConfig carries the mapping SDK credential. The key is supplied by the
// deployment (file or LAUNCHPAD_MAPS_API_KEY), never compiled in.
type MapsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LaunchConfig struct {
	Options         map[string]string `mapstructure:"options"`
	AnnounceTimeout time.Duration     `mapstructure:"announce_timeout" validate:"gt=0"`
}

type PluginsConfig struct {
	Enabled  []string       `mapstructure:"enabled" validate:"dive,oneof=kv events store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Stream  string `mapstructure:"stream"`
	Subject string `mapstructure:"subject"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the LAUNCHPAD_ prefix (e.g. LAUNCHPAD_MAPS_API_KEY).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct-level constraints on cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LaunchOptions converts the configured launch options to the generic map
// handed to the sequencer. viper folds map keys to lower case, so configured
// option keys always arrive lower-cased.
func (c *Config) LaunchOptions() map[string]any {
	out := make(map[string]any, len(c.Launch.Options))
	for k, v := range c.Launch.Options {
		out[k] = v
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "arc-launchpad")
	v.SetDefault("telemetry.log_level", "info")

	v.SetDefault("maps.api_key", "")

	v.SetDefault("launch.options", map[string]string{})
	v.SetDefault("launch.announce_timeout", 5*time.Second)

	v.SetDefault("plugins.enabled", []string{"kv", "events", "store"})

	v.SetDefault("plugins.redis.host", "arc-sonic")
	v.SetDefault("plugins.redis.port", 6379)
	v.SetDefault("plugins.redis.db", 0)
	v.SetDefault("plugins.redis.key_prefix", "launchpad")
	v.SetDefault("plugins.redis.ttl", 24*time.Hour)

	v.SetDefault("plugins.nats.url", "nats://arc-flash:4222")
	v.SetDefault("plugins.nats.stream", "APP_LAUNCHES")
	v.SetDefault("plugins.nats.subject", "app.launch.completed")

	v.SetDefault("plugins.postgres.host", "arc-oracle")
	v.SetDefault("plugins.postgres.port", 5432)
	v.SetDefault("plugins.postgres.user", "arc")
	v.SetDefault("plugins.postgres.db", "arc_db")
	v.SetDefault("plugins.postgres.ssl_mode", "disable")
	v.SetDefault("plugins.postgres.max_conns", 4)
}
