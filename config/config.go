// Package config provides configuration management for the application.
//
// Configuration is layered: built-in defaults, then config.yaml (with
// ${VAR} and ${VAR:-default} expansion), then environment overrides. A .env
// file in the working directory is loaded into the environment first and
// never overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Images     ImagesConfig     `yaml:"images"`
	Cache      CacheConfig      `yaml:"cache"`
	Storefront StorefrontConfig `yaml:"storefront"`
	Storage    StorageConfig    `yaml:"storage"`
	HTTP       HTTPConfig       `yaml:"http"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
	SEO        SEOConfig        `yaml:"seo"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
	// MasterKey protects the admin endpoints. Empty disables auth.
	MasterKey string `yaml:"master_key"`
	// BodySizeLimit caps request bodies, echo syntax (e.g. "1M")
	BodySizeLimit string `yaml:"body_size_limit"`
	// SwaggerEnabled serves Swagger UI at /swagger/index.html
	SwaggerEnabled bool `yaml:"swagger_enabled"`
}

// CatalogConfig holds catalog API settings
type CatalogConfig struct {
	DefaultAPIBase   string `yaml:"default_api_base" validate:"required,url"`
	PrimaryAPIBase   string `yaml:"primary_api_base" validate:"omitempty,url"`
	SecondaryAPIBase string `yaml:"secondary_api_base" validate:"omitempty,url"`
	// Region selects the API origin: primary, secondary or empty for the default
	Region            string  `yaml:"region" validate:"omitempty,oneof=primary secondary"`
	PageSize          int     `yaml:"page_size" validate:"gte=1,lte=500"`
	MaxPages          int     `yaml:"max_pages" validate:"gte=1,lte=1000"`
	IncludeInactive   bool    `yaml:"include_inactive"`
	DetailConcurrency int     `yaml:"detail_concurrency" validate:"gte=1,lte=64"`
	MaxRetries        int     `yaml:"max_retries" validate:"gte=0,lte=10"`
	BreakerThreshold  float64 `yaml:"breaker_failure_threshold" validate:"gt=0,lte=1"`
	BreakerMinReqs    uint32  `yaml:"breaker_min_requests" validate:"gte=1"`
	// BreakerTimeout is seconds the breaker stays open before probing
	BreakerTimeout int `yaml:"breaker_timeout" validate:"gte=1"`
}

// ImagesConfig holds image resolution and preloading settings
type ImagesConfig struct {
	// SiteBaseURL is the storefront's own origin; fallback assets resolve against it
	SiteBaseURL      string `yaml:"site_base_url" validate:"required,url"`
	ProductFallback  string `yaml:"product_fallback"`
	CategoryFallback string `yaml:"category_fallback"`
	Preload          bool   `yaml:"preload"`
	// PreloadConcurrency is the image warming worker count
	PreloadConcurrency int `yaml:"preload_concurrency" validate:"gte=1,lte=16"`
	// PreloadTimeout is seconds allowed per image
	PreloadTimeout int `yaml:"preload_timeout" validate:"gte=1"`
}

// CacheConfig holds cache store settings
type CacheConfig struct {
	Prefix string `yaml:"prefix" validate:"required,excludesall= /"`
	// Duration is the entry lifetime in seconds; 0 means the default of one hour
	Duration int  `yaml:"duration" validate:"gte=0"`
	Compress bool `yaml:"compress"`
	// Version overrides the schema version; 0 uses the built-in one
	Version int `yaml:"version" validate:"gte=0"`
}

// StorefrontConfig holds orchestration settings
type StorefrontConfig struct {
	DefaultLanguage string `yaml:"default_language" validate:"oneof=en ar"`
	// RevalidateInterval is seconds between cache freshness checks
	RevalidateInterval int `yaml:"revalidate_interval" validate:"gte=1"`
	// RefreshTimeout is seconds allowed per catalog reload (revalidation,
	// language change or cache clear)
	RefreshTimeout int `yaml:"refresh_timeout" validate:"gte=1"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	Type       string           `yaml:"type" validate:"oneof=memory local sqlite postgresql mongodb redis"`
	Local      LocalConfig      `yaml:"local"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
	Redis      RedisConfig      `yaml:"redis"`
}

// LocalConfig holds single-file storage configuration
type LocalConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns" validate:"gte=0"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string `yaml:"url"`
	// TTL is seconds a cache entry may live in Redis; 0 disables it.
	// The language preference and the warmed-image record never expire.
	TTL int `yaml:"ttl" validate:"gte=0"`
}

// HTTPConfig holds outbound HTTP client settings, in seconds
type HTTPConfig struct {
	Timeout               int `yaml:"timeout" validate:"gte=1"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout" validate:"gte=1"`
}

// MetricsConfig holds Prometheus metrics settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,startswith=/"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto json pretty"`
}

// SEOConfig holds sitemap and feed settings
type SEOConfig struct {
	// Currency is the ISO 4217 code used in the product feed
	Currency string `yaml:"currency" validate:"len=3,alpha"`
}

// buildDefaultConfig returns the configuration used when nothing overrides it.
func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "1M",
		},
		Catalog: CatalogConfig{
			DefaultAPIBase:    "http://localhost:5000/api",
			PageSize:          50,
			MaxPages:          20,
			DetailConcurrency: 8,
			MaxRetries:        2,
			BreakerThreshold:  0.6,
			BreakerMinReqs:    5,
			BreakerTimeout:    30,
		},
		Images: ImagesConfig{
			SiteBaseURL:        "http://localhost:8080",
			Preload:            true,
			PreloadConcurrency: 2,
			PreloadTimeout:     5,
		},
		Cache: CacheConfig{
			Prefix:   "roastery",
			Duration: 3600,
		},
		Storefront: StorefrontConfig{
			DefaultLanguage:    "en",
			RevalidateInterval: 3600,
			RefreshTimeout:     120,
		},
		Storage: StorageConfig{
			Type:       "local",
			Local:      LocalConfig{Path: ".cache/storefront.json"},
			SQLite:     SQLiteConfig{Path: ".cache/roastery.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 10},
			MongoDB:    MongoDBConfig{Database: "roastery"},
			Redis:      RedisConfig{TTL: 7 * 24 * 3600},
		},
		HTTP: HTTPConfig{
			Timeout:               30,
			ResponseHeaderTimeout: 20,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		SEO: SEOConfig{
			Currency: "USD",
		},
	}
}

// Defaults returns the built-in configuration, before any file or
// environment override.
func Defaults() *Config {
	return buildDefaultConfig()
}

// configPaths are searched in order when ROASTERY_CONFIG is unset.
var configPaths = []string{"config/config.yaml", "config.yaml"}

// Load reads configuration from .env, config.yaml and the environment, and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := buildDefaultConfig()

	path, explicit := os.LookupEnv("ROASTERY_CONFIG")
	paths := configPaths
	if explicit {
		paths = []string{path}
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !explicit {
				continue
			}
			return nil, fmt.Errorf("reading config file %s: %w", p, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", p, err)
		}
		break
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. A variable that is unset
// or empty takes its default; without a default the placeholder is kept.
func expandString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
}

type envOverride struct {
	key   string
	apply func(cfg *Config, val string) error
}

func setString(dst func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		*dst(cfg) = val
		return nil
	}
}

func setInt(dst func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*dst(cfg) = n
		return nil
	}
}

func setBool(dst func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		*dst(cfg) = b
		return nil
	}
}

var envOverrides = []envOverride{
	{"PORT", setString(func(c *Config) *string { return &c.Server.Port })},
	{"ROASTERY_MASTER_KEY", setString(func(c *Config) *string { return &c.Server.MasterKey })},
	{"ROASTERY_BODY_SIZE_LIMIT", setString(func(c *Config) *string { return &c.Server.BodySizeLimit })},
	{"ROASTERY_SWAGGER_ENABLED", setBool(func(c *Config) *bool { return &c.Server.SwaggerEnabled })},

	{"ROASTERY_API_BASE", setString(func(c *Config) *string { return &c.Catalog.DefaultAPIBase })},
	{"ROASTERY_API_BASE_PRIMARY", setString(func(c *Config) *string { return &c.Catalog.PrimaryAPIBase })},
	{"ROASTERY_API_BASE_SECONDARY", setString(func(c *Config) *string { return &c.Catalog.SecondaryAPIBase })},
	{"ROASTERY_REGION", setString(func(c *Config) *string { return &c.Catalog.Region })},
	{"ROASTERY_PAGE_SIZE", setInt(func(c *Config) *int { return &c.Catalog.PageSize })},
	{"ROASTERY_DETAIL_CONCURRENCY", setInt(func(c *Config) *int { return &c.Catalog.DetailConcurrency })},
	{"ROASTERY_INCLUDE_INACTIVE", setBool(func(c *Config) *bool { return &c.Catalog.IncludeInactive })},

	{"ROASTERY_SITE_BASE_URL", setString(func(c *Config) *string { return &c.Images.SiteBaseURL })},
	{"ROASTERY_IMAGE_PRELOAD", setBool(func(c *Config) *bool { return &c.Images.Preload })},
	{"ROASTERY_IMAGE_PRELOAD_CONCURRENCY", setInt(func(c *Config) *int { return &c.Images.PreloadConcurrency })},

	{"ROASTERY_CACHE_PREFIX", setString(func(c *Config) *string { return &c.Cache.Prefix })},
	{"ROASTERY_CACHE_DURATION", setInt(func(c *Config) *int { return &c.Cache.Duration })},
	{"ROASTERY_CACHE_COMPRESS", setBool(func(c *Config) *bool { return &c.Cache.Compress })},

	{"ROASTERY_DEFAULT_LANGUAGE", setString(func(c *Config) *string { return &c.Storefront.DefaultLanguage })},
	{"ROASTERY_REVALIDATE_INTERVAL", setInt(func(c *Config) *int { return &c.Storefront.RevalidateInterval })},

	{"ROASTERY_STORAGE_TYPE", setString(func(c *Config) *string { return &c.Storage.Type })},
	{"ROASTERY_LOCAL_PATH", setString(func(c *Config) *string { return &c.Storage.Local.Path })},
	{"ROASTERY_SQLITE_PATH", setString(func(c *Config) *string { return &c.Storage.SQLite.Path })},
	{"ROASTERY_POSTGRES_URL", setString(func(c *Config) *string { return &c.Storage.PostgreSQL.URL })},
	{"ROASTERY_POSTGRES_MAX_CONNS", setInt(func(c *Config) *int { return &c.Storage.PostgreSQL.MaxConns })},
	{"ROASTERY_MONGODB_URL", setString(func(c *Config) *string { return &c.Storage.MongoDB.URL })},
	{"ROASTERY_MONGODB_DATABASE", setString(func(c *Config) *string { return &c.Storage.MongoDB.Database })},
	{"ROASTERY_REDIS_URL", setString(func(c *Config) *string { return &c.Storage.Redis.URL })},

	{"ROASTERY_HTTP_TIMEOUT", setInt(func(c *Config) *int { return &c.HTTP.Timeout })},
	{"ROASTERY_HTTP_RESPONSE_HEADER_TIMEOUT", setInt(func(c *Config) *int { return &c.HTTP.ResponseHeaderTimeout })},

	{"ROASTERY_METRICS_ENABLED", setBool(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"ROASTERY_METRICS_ENDPOINT", setString(func(c *Config) *string { return &c.Metrics.Endpoint })},

	{"ROASTERY_LOG_LEVEL", setString(func(c *Config) *string { return &c.Log.Level })},
	{"ROASTERY_LOG_FORMAT", setString(func(c *Config) *string { return &c.Log.Format })},

	{"ROASTERY_FEED_CURRENCY", setString(func(c *Config) *string { return &c.SEO.Currency })},
}

// applyEnvOverrides applies every set environment override to cfg.
func applyEnvOverrides(cfg *Config) error {
	for _, o := range envOverrides {
		val, ok := os.LookupEnv(o.key)
		if !ok || val == "" {
			continue
		}
		if err := o.apply(cfg, val); err != nil {
			return fmt.Errorf("invalid value for %s: %w", o.key, err)
		}
	}
	return nil
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateStorage, StorageConfig{})

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// validateStorage requires the connection settings of the selected backend.
func validateStorage(sl validator.StructLevel) {
	s := sl.Current().Interface().(StorageConfig)
	switch s.Type {
	case "local":
		if s.Local.Path == "" {
			sl.ReportError(s.Local.Path, "local.path", "Path", "required_for_backend", s.Type)
		}
	case "sqlite":
		if s.SQLite.Path == "" {
			sl.ReportError(s.SQLite.Path, "sqlite.path", "Path", "required_for_backend", s.Type)
		}
	case "postgresql":
		if s.PostgreSQL.URL == "" {
			sl.ReportError(s.PostgreSQL.URL, "postgresql.url", "URL", "required_for_backend", s.Type)
		}
	case "mongodb":
		if s.MongoDB.URL == "" {
			sl.ReportError(s.MongoDB.URL, "mongodb.url", "URL", "required_for_backend", s.Type)
		}
	case "redis":
		if s.Redis.URL == "" {
			sl.ReportError(s.Redis.URL, "redis.url", "URL", "required_for_backend", s.Type)
		}
	}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_for_backend":
		return fmt.Sprintf("%s is required for storage type %q", field, fe.Param())
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", field, fe.Value())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s failed %s (got %v)", field, fe.Tag(), fe.Value())
	}
}
