// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DatabaseConfig  `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AIService AIServiceConfig `mapstructure:"ai_service"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	APIPrefix  string `mapstructure:"api_prefix"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Database       string        `mapstructure:"database"`
	PoolMin        int           `mapstructure:"pool_min"`
	PoolMax        int           `mapstructure:"pool_max"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AIServiceConfig holds the outbound AI subsystem client configuration.
type AIServiceConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables override file values using underscore
	// separators, e.g. DB_HOST, JWT_SECRET, AI_SERVICE_URL, PORT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindAliases(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindAliases maps the flat environment names that don't follow the
// section_key convention onto their dotted keys.
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.api_prefix", "API_PREFIX")
	_ = v.BindEnv("server.cors_origin", "CORS_ORIGIN")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = v.BindEnv("ai_service.url", "AI_SERVICE_URL")
	_ = v.BindEnv("ai_service.timeout", "AI_SERVICE_TIMEOUT")
	_ = v.BindEnv("ai_service.max_retries", "AI_SERVICE_MAX_RETRIES")
	_ = v.BindEnv("ai_service.retry_delay", "AI_SERVICE_RETRY_DELAY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "finkid")
	v.SetDefault("db.password", "")
	v.SetDefault("db.database", "finkid")
	v.SetDefault("db.pool_min", 5)
	v.SetDefault("db.pool_max", 20)
	v.SetDefault("db.idle_timeout", "30m")
	v.SetDefault("db.connect_timeout", "10s")

	v.SetDefault("jwt.expiration", "24h")

	v.SetDefault("ai_service.url", "http://localhost:8000")
	v.SetDefault("ai_service.timeout", "30s")
	v.SetDefault("ai_service.max_retries", 3)
	v.SetDefault("ai_service.retry_delay", "1s")
}
