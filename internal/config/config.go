package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults applied by Validate to optional settings.
const (
	DefaultCatalogBaseURL    = "https://api.rawg.io/api"
	DefaultCatalogTimeout    = "10s"
	DefaultTokenExpiry       = "24h"
	DefaultAuthCookieName    = "gamelib_token"
	DefaultSessionCookieName = "gamelib_sid"
	DefaultSessionIdle       = "30m"
	DefaultCacheTTL          = "10m"
	DefaultCachePrefix       = "gamelib"
	DefaultEventsQueue       = "collection.entry_added"

	csrfCookieName = "_csrf_token"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Cache    CacheConfig    `koanf:"cache"`
	Events   EventsConfig   `koanf:"events"`
	Session  SessionConfig  `koanf:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	CSRFSecret string `koanf:"csrf_secret"`
	Timeout    string `koanf:"timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds account token settings. An empty jwt_secret is replaced by
// a random one outside release mode.
type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	TokenExpiry string `koanf:"token_expiry"`
	CookieName  string `koanf:"cookie_name"`
}

// CatalogConfig holds settings of the external game catalog.
type CatalogConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Timeout string `koanf:"timeout"`
}

// CacheConfig holds settings of the Redis cache in front of the catalog.
type CacheConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	TTL      string `koanf:"ttl"`
	Prefix   string `koanf:"prefix"`
}

// EventsConfig holds settings of the RabbitMQ event publisher.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Queue   string `koanf:"queue"`
}

// SessionConfig holds settings of the per-client search sessions.
type SessionConfig struct {
	CookieName  string `koanf:"cookie_name"`
	IdleTimeout string `koanf:"idle_timeout"`
}

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are ignored; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__DATABASE__POOL__MAX_IDLE_CONNS=20 overrides database.pool.max_idle_conns.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Load YAML config file.
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// Overlay environment variables with prefix APP__.
	// APP__SERVER__PORT -> server.port
	// APP__DATABASE__POOL__MAX_IDLE_CONNS -> database.pool.max_idle_conns
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values. It fills in
// defaults for optional settings.
func (c *Config) Validate() error {
	// Validate server.mode.
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	// Validate server.port range.
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	// Validate server.host.
	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	if err := c.validateDatabase(); err != nil {
		return err
	}

	// Normalize optional duration fields: whitespace-only means unset.
	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	c.Database.Pool.ConnMaxLifetime = strings.TrimSpace(c.Database.Pool.ConnMaxLifetime)

	if err := validateOptionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if err := validateOptionalDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}

	// Validate log.level.
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	// Validate log.format.
	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
		// ok
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	if c.Database.Driver == "sqlite" {
		sqlitePath := strings.TrimSpace(c.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = sqlitePath
		return nil
	}

	pg := &c.Database.Postgres
	host := strings.TrimSpace(pg.Host)
	if host == "" {
		return fmt.Errorf("database.postgres.host is required when driver is postgres")
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	user := strings.TrimSpace(pg.User)
	if user == "" {
		return fmt.Errorf("database.postgres.user is required when driver is postgres")
	}
	dbName := strings.TrimSpace(pg.DBName)
	if dbName == "" {
		return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
	}
	sslMode := strings.TrimSpace(pg.SSLMode)
	switch sslMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		// ok
	default:
		return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
	}
	if c.Server.Mode == gin.ReleaseMode {
		switch sslMode {
		case "require", "verify-ca", "verify-full":
			// ok
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
		}
	}

	pg.Host = host
	pg.User = user
	pg.DBName = dbName
	pg.SSLMode = sslMode
	return nil
}

func (c *Config) validateAuth() error {
	secret := strings.TrimSpace(c.Auth.JWTSecret)
	if secret == "" && c.Server.Mode == gin.ReleaseMode {
		return fmt.Errorf("auth.jwt_secret is required in release mode")
	}
	if secret != "" && len(secret) < 32 {
		return fmt.Errorf("invalid auth.jwt_secret: must be at least 32 characters")
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(secret) < 3 {
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}
	c.Auth.JWTSecret = secret

	expiry, err := requiredDuration("auth.token_expiry", c.Auth.TokenExpiry, DefaultTokenExpiry)
	if err != nil {
		return err
	}
	c.Auth.TokenExpiry = expiry

	c.Auth.CookieName = orDefault(c.Auth.CookieName, DefaultAuthCookieName)
	return nil
}

func (c *Config) validateCatalog() error {
	base := strings.TrimRight(orDefault(c.Catalog.BaseURL, DefaultCatalogBaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid catalog.base_url %q: must be an absolute http(s) URL", c.Catalog.BaseURL)
	}
	c.Catalog.BaseURL = base
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)

	timeout, err := requiredDuration("catalog.timeout", c.Catalog.Timeout, DefaultCatalogTimeout)
	if err != nil {
		return err
	}
	c.Catalog.Timeout = timeout
	return nil
}

func (c *Config) validateCache() error {
	c.Cache.Addr = strings.TrimSpace(c.Cache.Addr)
	c.Cache.Prefix = orDefault(c.Cache.Prefix, DefaultCachePrefix)
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when caching is enabled")
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("invalid cache.db %d: must not be negative", c.Cache.DB)
	}
	ttl, err := requiredDuration("cache.ttl", c.Cache.TTL, DefaultCacheTTL)
	if err != nil {
		return err
	}
	c.Cache.TTL = ttl
	return nil
}

func (c *Config) validateEvents() error {
	c.Events.URL = strings.TrimSpace(c.Events.URL)
	c.Events.Queue = orDefault(c.Events.Queue, DefaultEventsQueue)
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	u, err := url.Parse(c.Events.URL)
	if err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
		return fmt.Errorf("invalid events.url: must use the amqp or amqps scheme")
	}
	return nil
}

func (c *Config) validateSession() error {
	c.Session.CookieName = orDefault(c.Session.CookieName, DefaultSessionCookieName)
	idle, err := requiredDuration("session.idle_timeout", c.Session.IdleTimeout, DefaultSessionIdle)
	if err != nil {
		return err
	}
	c.Session.IdleTimeout = idle

	names := map[string]string{csrfCookieName: "csrf"}
	for _, cookie := range []struct{ key, name string }{
		{"auth.cookie_name", c.Auth.CookieName},
		{"session.cookie_name", c.Session.CookieName},
	} {
		if other, taken := names[cookie.name]; taken {
			return fmt.Errorf("invalid %s %q: already used by the %s cookie", cookie.key, cookie.name, other)
		}
		names[cookie.name] = cookie.key
	}
	return nil
}

// validateOptionalDuration accepts an empty value or a positive Go duration.
func validateOptionalDuration(key, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", key, value)
	}
	return nil
}

// requiredDuration returns value, or def when value is blank, after checking
// it is a positive Go duration.
func requiredDuration(key, value, def string) (string, error) {
	v := orDefault(value, def)
	if err := validateOptionalDuration(key, v); err != nil {
		return "", err
	}
	return v, nil
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}

// Duration parses a duration already checked by Validate. Invalid or empty
// values yield def.
func Duration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	hasLower := false
	hasUpper := false
	hasDigit := false
	hasSymbol := false

	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := 0
	if hasLower {
		classes++
	}
	if hasUpper {
		classes++
	}
	if hasDigit {
		classes++
	}
	if hasSymbol {
		classes++
	}

	return classes
}
