package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the whole application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
	BaseURL       string `mapstructure:"base_url"`
	SecureCookie  bool   `mapstructure:"secure_cookie"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	Dir             string        `mapstructure:"dir"`
	TTL             time.Duration `mapstructure:"ttl"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	JanitorSchedule string        `mapstructure:"janitor_schedule"`
}

type MailConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	From         string        `mapstructure:"from"`
	AdminAddress string        `mapstructure:"admin_address"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"server.port":           "8080",
	"server.session_secret": "",
	"server.base_url":       "http://localhost:8080",
	"server.secure_cookie":  false,

	"database.driver":       "sqlite",
	"database.dsn":          "blogpress.db",
	"database.max_idle":     5,
	"database.max_open":     10,
	"database.max_lifetime": 30,

	"cache.backend":          "file",
	"cache.dir":              "cache",
	"cache.ttl":              10 * time.Second,
	"cache.redis_addr":       "localhost:6379",
	"cache.redis_password":   "",
	"cache.redis_db":         0,
	"cache.janitor_schedule": "@every 1m",

	"mail.host":          "",
	"mail.port":          "25",
	"mail.user":          "",
	"mail.password":      "",
	"mail.from":          "ad@example.com",
	"mail.admin_address": "admin@example.com",
	"mail.timeout":       10 * time.Second,

	"log.level":  "info",
	"log.format": "json",
}

// legacyEnv keeps the environment names used by earlier deployments working.
var legacyEnv = map[string]string{
	"server.port":           "PORT",
	"server.session_secret": "SESSION_SECRET",
	"server.base_url":       "DOMAIN",
	"database.dsn":          "SQLITE_DB",
	"mail.host":             "SMTP_HOST",
	"mail.port":             "SMTP_PORT",
	"mail.user":             "SMTP_USER",
	"mail.password":         "SMTP_PASSWORD",
	"mail.from":             "SMTP_FROM",
}

// Load reads .env (if present), an optional config.yaml and the environment.
// Environment variables win over the file: SERVER_PORT, CACHE_TTL, MAIL_HOST...
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	return &cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.SessionSecret == "" {
		return errors.New("server.session_secret (SESSION_SECRET) is not set")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	return nil
}
