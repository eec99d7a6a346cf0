// Package config loads the cinehub server configuration from defaults, an
// optional config.yaml and CINEHUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/CreativeUnicorns/cinehub"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Prefs    PrefsConfig    `mapstructure:"prefs"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the preference storage backend.
// Driver is one of memory, sqlite or postgres.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig selects the cache backend. Driver is one of none, memory or redis.
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	URL    string        `mapstructure:"url"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	AdminEmails []string      `mapstructure:"admin_emails"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

type StreamConfig struct {
	Path        string `mapstructure:"path"`
	ContentType string `mapstructure:"content_type"`
	ChunkSize   int    `mapstructure:"chunk_size"`
}

type EventsConfig struct {
	// AnnounceInterval bounds the random delay between announcements. Zero disables them.
	AnnounceInterval time.Duration `mapstructure:"announce_interval"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSONFormat bool   `mapstructure:"json_format"`
}

// PrefsConfig lists the allowed values of enum preferences. It is a list
// rather than a map because viper lower-cases map keys.
type PrefsConfig struct {
	Enums []EnumConfig `mapstructure:"enums"`
}

type EnumConfig struct {
	Name   string   `mapstructure:"name"`
	Values []string `mapstructure:"values"`
}

// EnumTable returns the enums keyed by preference name.
func (p PrefsConfig) EnumTable() map[string][]string {
	table := make(map[string][]string, len(p.Enums))
	for _, e := range p.Enums {
		table[e.Name] = append([]string(nil), e.Values...)
	}
	return table
}

// Load reads the configuration from the default locations.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/cinehub")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}
	return decode(v)
}

// LoadFile reads the configuration from path, still honouring env overrides.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "cinehub.db")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.url", "redis://localhost:6379/0")
	v.SetDefault("cache.prefix", "cinehub:")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("stream.path", "assets/movies_streams/movie.mp4")
	v.SetDefault("stream.content_type", "video/mp4")
	v.SetDefault("stream.chunk_size", 64*1024)
	v.SetDefault("events.announce_interval", "20s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", true)
	v.SetDefault("prefs.enums", defaultEnums())

	// Environment variables
	v.SetEnvPrefix("CINEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func defaultEnums() []map[string]any {
	var out []map[string]any
	for name, values := range cinehub.DefaultEnums() {
		out = append(out, map[string]any{"name": name, "values": values})
	}
	return out
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be one of memory, sqlite, postgres; got %q", c.Database.Driver)
	}
	switch c.Cache.Driver {
	case "none", "memory":
	case "redis":
		if c.Cache.URL == "" {
			return fmt.Errorf("cache.url is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be one of none, memory, redis; got %q", c.Cache.Driver)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Stream.Path == "" {
		return fmt.Errorf("stream.path is required")
	}
	if c.Stream.ChunkSize < 1 {
		return fmt.Errorf("stream.chunk_size must be positive")
	}
	if c.Events.AnnounceInterval < 0 {
		return fmt.Errorf("events.announce_interval must not be negative")
	}
	for i, e := range c.Prefs.Enums {
		if e.Name == "" {
			return fmt.Errorf("prefs.enums[%d].name is required", i)
		}
		if len(e.Values) == 0 {
			return fmt.Errorf("prefs.enums.%s must list at least one value", e.Name)
		}
	}
	return nil
}
