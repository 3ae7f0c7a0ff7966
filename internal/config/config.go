package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the loaders.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSMTPFrom     = "SMTP_FROM"

	EnvRevokeRedisAddr     = "REVOKE_REDIS_ADDR"
	EnvRevokeRedisPassword = "REVOKE_REDIS_PASSWORD"
	EnvRevokeRedisDB       = "REVOKE_REDIS_DB"
	EnvRevokeRedisPrefix   = "REVOKE_REDIS_PREFIX"

	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
	EnvAdminEmail    = "ADMIN_EMAIL"
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

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
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
const defaultJWTExpiry = 7 * 24 * time.Hour

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

// MailConfig holds SMTP transport settings.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Configured reports whether the transport has enough settings to send.
func (c MailConfig) Configured() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.From) != ""
}

// LoadMailConfig loads SMTP settings from the YAML config file.
func LoadMailConfig(configPath string) (MailConfig, error) {
	// fileConfig maps the YAML fields needed for mail settings.
	type fileConfig struct {
		Mail MailConfig `yaml:"mail"`
	}

	result := MailConfig{Port: 587}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Mail
		}
	}

	if host := strings.TrimSpace(os.Getenv(EnvSMTPHost)); host != "" {
		result.Host = host
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvSMTPPort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil && port > 0 {
			result.Port = port
		}
	}
	if username := strings.TrimSpace(os.Getenv(EnvSMTPUsername)); username != "" {
		result.Username = username
	}
	if password := os.Getenv(EnvSMTPPassword); password != "" {
		result.Password = password
	}
	if from := strings.TrimSpace(os.Getenv(EnvSMTPFrom)); from != "" {
		result.From = from
	}

	if result.Port <= 0 {
		result.Port = 587
	}
	return result, nil
}

// defaultRevokePrefix is the fallback Redis key prefix for revoked tokens.
const defaultRevokePrefix = "schooltrack:revoked"

// RevocationConfig holds settings for the shared token revocation store.
// An empty RedisAddr selects the in-memory, single-instance store.
type RevocationConfig struct {
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
	RedisPrefix   string `yaml:"redis-prefix"`
}

// LoadRevocationConfig loads revocation store settings from the YAML config file.
func LoadRevocationConfig(configPath string) (RevocationConfig, error) {
	// fileConfig maps the YAML fields needed for revocation settings.
	type fileConfig struct {
		Revocation RevocationConfig `yaml:"revocation"`
	}

	var result RevocationConfig

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Revocation
		}
	}

	if addr := strings.TrimSpace(os.Getenv(EnvRevokeRedisAddr)); addr != "" {
		result.RedisAddr = addr
	}
	if password := os.Getenv(EnvRevokeRedisPassword); password != "" {
		result.RedisPassword = password
	}
	if dbRaw := strings.TrimSpace(os.Getenv(EnvRevokeRedisDB)); dbRaw != "" {
		if dbIndex, errParse := strconv.Atoi(dbRaw); errParse == nil && dbIndex >= 0 {
			result.RedisDB = dbIndex
		}
	}
	if prefix := strings.TrimSpace(os.Getenv(EnvRevokeRedisPrefix)); prefix != "" {
		result.RedisPrefix = prefix
	}

	result.RedisAddr = strings.TrimSpace(result.RedisAddr)
	if result.RedisDB < 0 {
		result.RedisDB = 0
	}
	if strings.TrimSpace(result.RedisPrefix) == "" {
		result.RedisPrefix = defaultRevokePrefix
	}
	return result, nil
}

// AdminBootstrap holds the optional first-run admin account settings.
type AdminBootstrap struct {
	Username string
	Password string
	Email    string
}

// LoadAdminBootstrap reads admin bootstrap settings from the environment.
func LoadAdminBootstrap() AdminBootstrap {
	result := AdminBootstrap{
		Username: strings.TrimSpace(os.Getenv(EnvAdminUsername)),
		Password: os.Getenv(EnvAdminPassword),
		Email:    strings.TrimSpace(os.Getenv(EnvAdminEmail)),
	}
	if result.Email == "" && result.Username != "" {
		result.Email = result.Username + "@schooltrack.local"
	}
	return result
}
