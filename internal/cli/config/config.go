package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the base name of the configuration file
const FileName = "docapi"

// EnvPrefix prefixes every environment override, e.g. DOCAPI_SERVER_PORT
const EnvPrefix = "DOCAPI"

// Config represents the docapi configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
	Store     StoreConfig      `mapstructure:"store"`
	Tracking  TrackingConfig   `mapstructure:"tracking"`
	Resources []ResourceConfig `mapstructure:"resources"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ShowDetails     bool          `mapstructure:"show_details"`
	Pprof           bool          `mapstructure:"pprof"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig configures cross-origin access to the API
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"` // glob patterns
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"` // seconds
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Driver   string        `mapstructure:"driver"` // memory, mongo, sqlite, postgres
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TrackingConfig configures where request events go
type TrackingConfig struct {
	Log        bool             `mapstructure:"log"`
	Workers    int              `mapstructure:"workers"`
	Buffer     int              `mapstructure:"buffer"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// RedisConfig configures the Redis stream sink; an empty Addr disables it
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len"`
}

// PrometheusConfig configures the metrics sink and its scrape endpoint
type PrometheusConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ResourceConfig declares one endpoint
type ResourceConfig struct {
	Path        string           `mapstructure:"path"`
	Name        string           `mapstructure:"name"`
	Collection  string           `mapstructure:"collection"`
	Fields      []FieldConfig    `mapstructure:"fields"`
	Refs        []RefConfig      `mapstructure:"refs"`
	QueryParams []string         `mapstructure:"query_params"`
	Populate    []PopulateConfig `mapstructure:"populate"`
	LimitFields []string         `mapstructure:"limit_fields"`
	BulkPost    bool             `mapstructure:"bulk_post"`
	PerPage     int              `mapstructure:"per_page"`
	SortField   string           `mapstructure:"sort_field"`
	Cascade     []string         `mapstructure:"cascade"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
}

// RateLimitConfig limits requests per client IP on a resource. A zero
// Limit disables it. Limits are shared through Redis when
// tracking.redis.addr is set.
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// FieldConfig declares the type of a document field
type FieldConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// RefConfig declares a reference field
type RefConfig struct {
	Field      string `mapstructure:"field"`
	Collection string `mapstructure:"collection"`
	Many       bool   `mapstructure:"many"`
}

// PopulateConfig declares a reference expanded on reads
type PopulateConfig struct {
	Field  string   `mapstructure:"field"`
	Select []string `mapstructure:"select"`
}

// setDefaults registers the default of every setting
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.show_details", false)
	v.SetDefault("server.pprof", false)
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.cors.max_age", 86400)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.uri", "")
	v.SetDefault("store.database", FileName)
	v.SetDefault("store.timeout", 10*time.Second)

	v.SetDefault("tracking.log", true)
	v.SetDefault("tracking.workers", 4)
	v.SetDefault("tracking.buffer", 100)
	v.SetDefault("tracking.redis.addr", "")
	v.SetDefault("tracking.redis.password", "")
	v.SetDefault("tracking.redis.db", 0)
	v.SetDefault("tracking.redis.stream", "docapi:requests")
	v.SetDefault("tracking.redis.max_len", 0)
	v.SetDefault("tracking.prometheus.enabled", true)
	v.SetDefault("tracking.prometheus.namespace", FileName)
	v.SetDefault("tracking.prometheus.path", "/metrics")
}

// New returns a viper instance with defaults, file search paths and
// environment overrides configured. path names an explicit config file.
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load loads the configuration from docapi.yaml, or from path when given.
// A missing file in the search paths is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := New(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	return Decode(v)
}

// Decode unmarshals and validates the settings held by v
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot walks up from the working directory to the first directory
// holding a docapi.yaml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yaml", ".yml"} {
			if _, err := os.Stat(filepath.Join(dir, FileName+ext)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yaml found", FileName)
		}
		dir = parent
	}
}

var drivers = map[string]bool{
	"memory":   true,
	"mongo":    true,
	"mongodb":  true,
	"sqlite":   true,
	"sqlite3":  true,
	"postgres": true,
	"pgx":      true,
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			errs = append(errs, fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix))
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			errs = append(errs, fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix))
		}
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", cfg.Server.Port))
	}

	if cfg.Server.CORS.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("server.cors.max_age must not be negative"))
	}

	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got: %s", cfg.Log.Format))
	}

	driver := strings.ToLower(cfg.Store.Driver)
	if !drivers[driver] {
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", cfg.Store.Driver))
	} else if driver != "memory" && cfg.Store.URI == "" {
		errs = append(errs, fmt.Errorf("store.uri is required for driver %s", cfg.Store.Driver))
	}

	seen := make(map[string]bool, len(cfg.Resources))
	for i, r := range cfg.Resources {
		if r.Path == "" || !strings.HasPrefix(r.Path, "/") {
			errs = append(errs, fmt.Errorf("resources[%d].path must start with '/', got: %q", i, r.Path))
			continue
		}
		if seen[r.Path] {
			errs = append(errs, fmt.Errorf("resources[%d].path %s is declared twice", i, r.Path))
		}
		seen[r.Path] = true
		if r.PerPage < 0 {
			errs = append(errs, fmt.Errorf("resources[%d].per_page must not be negative", i))
		}
		if r.RateLimit.Limit < 0 || (r.RateLimit.Limit > 0 && r.RateLimit.Window <= 0) {
			errs = append(errs, fmt.Errorf("resources[%d].rate_limit needs a positive limit and window", i))
		}
	}

	return errors.Join(errs...)
}

// ModelName returns the model name of the resource, derived from its path when
// not set
func (r ResourceConfig) ModelName() string {
	if r.Name != "" {
		return r.Name
	}
	return strings.Trim(strings.ReplaceAll(r.Path, "/", "_"), "_")
}

// CollectionName returns the collection of the resource, the model name
// when not set
func (r ResourceConfig) CollectionName() string {
	if r.Collection != "" {
		return r.Collection
	}
	return r.ModelName()
}
