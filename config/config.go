// Package config loads the engine's configuration from an optional
// config.json base file with environment-variable overrides taking
// precedence, following the project's usual struct-of-structs shape.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	StoreConfig        StoreConfig        `json:"store"`
	MarketDataConfig    MarketDataConfig   `json:"market_data"`
	ProviderConfig      ProviderConfig     `json:"provider"`
	NotificationConfig  NotificationConfig `json:"notification"`
	VaultConfig         VaultConfig        `json:"vault"`
	RedisConfig         RedisConfig        `json:"redis"`
	AuthConfig          AuthConfig         `json:"auth"`
	ServerConfig        ServerConfig       `json:"server"`
	LoggingConfig       LoggingConfig      `json:"logging"`
}

// StoreConfig addresses the persistent store (PostgreSQL) the engine
// borrows rows from; it never owns schema beyond the tables it writes.
type StoreConfig struct {
	DatabaseURL string `json:"database_url"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Password    string `json:"password"`
	Database    string `json:"database"`
	SSLMode     string `json:"ssl_mode"`
}

// DSN returns the database URL if set directly, otherwise assembles one
// from the discrete fields.
func (c StoreConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type MarketDataConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type ProviderConfig struct {
	Type         string `json:"type"` // SIMULATED or METATRADER
	BridgeURL    string `json:"bridge_url"`
	BridgeAPIKey string `json:"bridge_api_key"`
}

type NotificationConfig struct {
	SendGridAPIKey string `json:"sendgrid_api_key"`
	FromEmail      string `json:"from_email"`
	RecipientEmail string `json:"notification_email_recipient"`
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	AllowedOrigins  []string      `json:"allowed_origins"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	JSONFormat  bool   `json:"json_format"`
	IncludeFile bool   `json:"include_file"`
}

// Load reads an optional config.json base, then applies environment
// overrides, which always win.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.StoreConfig.DatabaseURL = getEnvOrDefault("STORE_DATABASE_URL", cfg.StoreConfig.DatabaseURL)
	cfg.StoreConfig.Host = getEnvOrDefault("STORE_DB_HOST", cfg.StoreConfig.Host)
	cfg.StoreConfig.Port = getEnvIntOrDefault("STORE_DB_PORT", orDefaultInt(cfg.StoreConfig.Port, 5432))
	cfg.StoreConfig.User = getEnvOrDefault("STORE_DB_USER", cfg.StoreConfig.User)
	cfg.StoreConfig.Password = getEnvOrDefault("STORE_DB_PASSWORD", cfg.StoreConfig.Password)
	cfg.StoreConfig.Database = getEnvOrDefault("STORE_DB_NAME", cfg.StoreConfig.Database)
	cfg.StoreConfig.SSLMode = getEnvOrDefault("STORE_DB_SSLMODE", orDefaultString(cfg.StoreConfig.SSLMode, "disable"))

	cfg.MarketDataConfig.APIKey = getEnvOrDefault("MARKET_DATA_API_KEY", cfg.MarketDataConfig.APIKey)
	cfg.MarketDataConfig.BaseURL = getEnvOrDefault("MARKET_DATA_BASE_URL", orDefaultString(cfg.MarketDataConfig.BaseURL, "https://www.alphavantage.co"))

	cfg.ProviderConfig.Type = getEnvOrDefault("TRADE_PROVIDER_TYPE", orDefaultString(cfg.ProviderConfig.Type, "SIMULATED"))
	cfg.ProviderConfig.BridgeURL = getEnvOrDefault("MT_BRIDGE_URL", cfg.ProviderConfig.BridgeURL)
	cfg.ProviderConfig.BridgeAPIKey = getEnvOrDefault("MT_BRIDGE_API_KEY", cfg.ProviderConfig.BridgeAPIKey)

	cfg.NotificationConfig.SendGridAPIKey = getEnvOrDefault("SENDGRID_API_KEY", cfg.NotificationConfig.SendGridAPIKey)
	cfg.NotificationConfig.FromEmail = getEnvOrDefault("FROM_EMAIL", cfg.NotificationConfig.FromEmail)
	cfg.NotificationConfig.RecipientEmail = getEnvOrDefault("NOTIFICATION_EMAIL_RECIPIENT", cfg.NotificationConfig.RecipientEmail)

	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", orDefaultString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", orDefaultString(cfg.VaultConfig.SecretPath, "xauusd-engine"))

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", orDefaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)

	cfg.ServerConfig.Port = getEnvOrDefault("WEB_PORT", orDefaultString(cfg.ServerConfig.Port, "8080"))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", orDefaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		cfg.ServerConfig.AllowedOrigins = splitCSV(origins)
	} else if len(cfg.ServerConfig.AllowedOrigins) == 0 {
		cfg.ServerConfig.AllowedOrigins = []string{"*"}
	}
	cfg.ServerConfig.ReadTimeout = getEnvDurationOrDefault("SERVER_READ_TIMEOUT", orDefaultDuration(cfg.ServerConfig.ReadTimeout, 15*time.Second))
	cfg.ServerConfig.WriteTimeout = getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", orDefaultDuration(cfg.ServerConfig.WriteTimeout, 15*time.Second))
	cfg.ServerConfig.ShutdownTimeout = getEnvDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", orDefaultDuration(cfg.ServerConfig.ShutdownTimeout, 10*time.Second))

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", orDefaultString(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", orDefaultString(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig writes a sample configuration file with safe
// development defaults.
func GenerateSampleConfig(filename string) error {
	cfg := Config{
		StoreConfig: StoreConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "xauusd",
			Database: "xauusd_engine",
			SSLMode:  "disable",
		},
		MarketDataConfig: MarketDataConfig{
			BaseURL: "https://www.alphavantage.co",
		},
		ProviderConfig: ProviderConfig{
			Type: "SIMULATED",
		},
		VaultConfig: VaultConfig{
			Enabled:    false,
			MountPath:  "secret",
			SecretPath: "xauusd-engine",
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
		ServerConfig: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
