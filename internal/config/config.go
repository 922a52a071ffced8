package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the loaders. Env values win over the
// config file.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvVahanBaseURL = "VAHAN_BASE_URL"
	EnvVahanAPIKey  = "VAHAN_API_KEY"
	EnvRedisAddr    = "REDIS_ADDR"

	EnvAdminEmail    = "ADMIN_EMAIL"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config
// file. The server can still start in degraded mode without one.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// defaultVahanBaseURL is the lookup provider endpoint used when unconfigured.
const defaultVahanBaseURL = "https://api.cuvora.com/car/partner/vehicle/search/v3"

// ProviderConfig holds the external vehicle lookup provider settings.
type ProviderConfig struct {
	BaseURL string        `yaml:"base-url"`
	APIKey  string        `yaml:"api-key"`
	MaxAge  string        `yaml:"max-age"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadProviderConfig loads lookup provider settings from the YAML config file.
func LoadProviderConfig(configPath string) ProviderConfig {
	// fileConfig maps the YAML fields for the provider client.
	type fileConfig struct {
		Vahan ProviderConfig `yaml:"vahan"`
	}

	var result ProviderConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Vahan
		}
	}

	if baseURL := strings.TrimSpace(os.Getenv(EnvVahanBaseURL)); baseURL != "" {
		result.BaseURL = baseURL
	}
	if apiKey := strings.TrimSpace(os.Getenv(EnvVahanAPIKey)); apiKey != "" {
		result.APIKey = apiKey
	}

	result.BaseURL = strings.TrimSpace(result.BaseURL)
	if result.BaseURL == "" {
		result.BaseURL = defaultVahanBaseURL
	}
	result.APIKey = strings.TrimSpace(result.APIKey)
	result.MaxAge = strings.TrimSpace(result.MaxAge)
	if result.MaxAge == "" {
		result.MaxAge = "999"
	}
	if result.Timeout <= 0 {
		result.Timeout = 5 * time.Second
	}
	return result
}

// RedisConfig holds the optional shared rate-limit backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a Redis backend is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// LoadRedisConfig loads rate-limit Redis settings from the YAML config file.
func LoadRedisConfig(configPath string) RedisConfig {
	// fileConfig maps the YAML fields for the redis backend.
	type fileConfig struct {
		Redis RedisConfig `yaml:"redis"`
	}

	var result RedisConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Redis
		}
	}

	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.Addr = addr
	}

	result.Addr = strings.TrimSpace(result.Addr)
	result.Prefix = strings.TrimSpace(result.Prefix)
	if result.Prefix == "" {
		result.Prefix = "rcview:rl"
	}
	if result.DB < 0 {
		result.DB = 0
	}
	return result
}

// BootstrapAdmin holds the credentials used to seed the first admin account
// on an empty database.
type BootstrapAdmin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Configured reports whether bootstrap credentials are present.
func (b BootstrapAdmin) Configured() bool {
	return strings.TrimSpace(b.Email) != "" && strings.TrimSpace(b.Password) != ""
}

// LoadBootstrapAdmin loads the bootstrap admin credentials from the YAML
// config file, with env overrides.
func LoadBootstrapAdmin(configPath string) BootstrapAdmin {
	// fileConfig maps the YAML fields for the bootstrap admin.
	type fileConfig struct {
		Admin BootstrapAdmin `yaml:"admin"`
	}

	var result BootstrapAdmin
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Admin
		}
	}

	if email := strings.TrimSpace(os.Getenv(EnvAdminEmail)); email != "" {
		result.Email = email
	}
	if password := strings.TrimSpace(os.Getenv(EnvAdminPassword)); password != "" {
		result.Password = password
	}

	result.Email = strings.ToLower(strings.TrimSpace(result.Email))
	return result
}
