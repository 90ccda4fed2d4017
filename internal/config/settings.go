package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// EnvPrefix is the prefix of every environment variable the server reads.
const EnvPrefix = "SYMDEX_MCP"

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DocsSettings configuration for documentation source indexing.
// A source is either a local directory or an SSH git URL.
type DocsSettings struct {
	Enabled      bool          `mapstructure:"enabled"`
	Sources      []string      `mapstructure:"sources"`
	BaseDir      string        `mapstructure:"base_dir"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	SyncTimeout  time.Duration `mapstructure:"sync_timeout"`
	MaxFileSize  int64         `mapstructure:"max_file_size"`
	MaxResults   int           `mapstructure:"max_results"`
}

// CacheSettings configuration for the search result cache.
// RedisAddr selects the Redis backend; otherwise an in-process LRU is used.
type CacheSettings struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Size          int           `mapstructure:"size"`
}

// RateLimitSettings configuration for the SSE request rate limiter
type RateLimitSettings struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// Settings application settings
type Settings struct {
	Transport string            `mapstructure:"transport"`
	Host      string            `mapstructure:"host"`
	Port      int               `mapstructure:"port"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Docs      DocsSettings      `mapstructure:"docs"`
	Cache     CacheSettings     `mapstructure:"cache"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
}

// keyBinding ties a viper key to its CLI flag name.
type keyBinding struct {
	key  string
	flag string
}

var bindings = []keyBinding{
	{"transport", "transport"},
	{"host", "host"},
	{"port", "port"},
	{"auth.type", "auth-type"},
	{"auth.basic.username", "auth-basic-username"},
	{"auth.basic.password", "auth-basic-password"},
	{"auth.api_keys", "auth-api-keys"},

	{"docs.enabled", "docs-enabled"},
	{"docs.sources", "docs-sources"},
	{"docs.base_dir", "docs-base-dir"},
	{"docs.sync_interval", "docs-sync-interval"},
	{"docs.sync_timeout", "docs-sync-timeout"},
	{"docs.max_file_size", "docs-max-file-size"},
	{"docs.max_results", "docs-max-results"},

	{"cache.enabled", "cache-enabled"},
	{"cache.redis_addr", "cache-redis-addr"},
	{"cache.redis_password", "cache-redis-password"},
	{"cache.redis_db", "cache-redis-db"},
	{"cache.ttl", "cache-ttl"},
	{"cache.size", "cache-size"},

	{"rate_limit.enabled", "rate-limit-enabled"},
	{"rate_limit.rps", "rate-limit-rps"},
	{"rate_limit.burst", "rate-limit-burst"},
}

// EnvName returns the environment variable bound to a settings key,
// e.g. "docs.base_dir" -> "SYMDEX_MCP_DOCS_BASE_DIR".
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// Docs defaults
	v.SetDefault("docs.enabled", false)
	v.SetDefault("docs.base_dir", defaultDocsBaseDir())
	v.SetDefault("docs.sync_interval", 15*time.Minute)
	v.SetDefault("docs.sync_timeout", 60*time.Second)
	v.SetDefault("docs.max_file_size", int64(4*1024*1024)) // 4MB
	v.SetDefault("docs.max_results", 20)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.size", 512)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	for _, b := range bindings {
		_ = v.BindEnv(b.key, EnvName(b.key))
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for _, b := range bindings {
			if f := flags.Lookup(b.flag); f != nil {
				_ = v.BindPFlag(b.key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Auth.APIKeys = splitListEnv(settings.Auth.APIKeys, EnvName("auth.api_keys"))
	settings.Docs.Sources = filterEmptyStrings(splitListEnv(settings.Docs.Sources, EnvName("docs.sources")))

	// Expand home directory in base_dir and local sources
	settings.Docs.BaseDir = expandHomeDir(settings.Docs.BaseDir)
	for i := range settings.Docs.Sources {
		settings.Docs.Sources[i] = expandHomeDir(settings.Docs.Sources[i])
	}

	return &settings, nil
}

// splitListEnv handles a list supplied via env var as a comma-separated
// string, then trims every element.
func splitListEnv(values []string, envName string) []string {
	if raw := os.Getenv(envName); raw != "" {
		if len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ",")) {
			values = strings.Split(raw, ",")
		}
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return values
}

// defaultDocsBaseDir returns the default base directory for indexes and clones
func defaultDocsBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".symdex-mcp"
	}
	return filepath.Join(home, ".symdex-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := validateDocsSettings(&s.Docs); err != nil {
		return err
	}
	if err := validateCacheSettings(&s.Cache); err != nil {
		return err
	}
	return validateRateLimitSettings(&s.RateLimit)
}

// validateDocsSettings validates the documentation source configuration
func validateDocsSettings(d *DocsSettings) error {
	if !d.Enabled {
		return nil // No validation needed when disabled
	}

	if len(d.Sources) == 0 {
		return errors.New("docs-enabled requires at least one source (docs-sources)")
	}

	if d.SyncInterval <= 0 {
		return errors.New("docs-sync-interval must be positive")
	}

	if d.SyncTimeout <= 0 {
		return errors.New("docs-sync-timeout must be positive")
	}

	if d.MaxFileSize <= 0 {
		return errors.New("docs-max-file-size must be positive")
	}

	if d.MaxResults <= 0 {
		return errors.New("docs-max-results must be positive")
	}

	if d.BaseDir == "" {
		return errors.New("docs-base-dir cannot be empty")
	}

	return nil
}

func validateCacheSettings(c *CacheSettings) error {
	if !c.Enabled {
		return nil
	}
	if c.TTL <= 0 {
		return errors.New("cache-ttl must be positive")
	}
	if c.RedisAddr == "" && c.Size <= 0 {
		return errors.New("cache-size must be positive when no redis address is set")
	}
	if c.RedisDB < 0 {
		return errors.New("cache-redis-db cannot be negative")
	}
	return nil
}

func validateRateLimitSettings(r *RateLimitSettings) error {
	if !r.Enabled {
		return nil
	}
	if r.RPS <= 0 {
		return errors.New("rate-limit-rps must be positive")
	}
	if r.Burst <= 0 {
		return errors.New("rate-limit-burst must be positive")
	}
	return nil
}
