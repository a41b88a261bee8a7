package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string   `mapstructure:"PORT"`
	Env                  string   `mapstructure:"ENV"`
	DatabaseURL          string   `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32    `mapstructure:"DB_MIN_CONNS"`
	SecretKey            string   `mapstructure:"SECRET_KEY"`
	AccessTokenExpireMin int      `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	EncryptionKey        string   `mapstructure:"ENCRYPTION_KEY"`
	CORSOrigins          []string `mapstructure:"CORS_ORIGINS"`
	WarehouseExportDir   string   `mapstructure:"WAREHOUSE_EXPORT_DIR"`
	WarehouseUploadURL   string   `mapstructure:"WAREHOUSE_UPLOAD_URL"`
	WarehousePipelineURL string   `mapstructure:"WAREHOUSE_PIPELINE_URL"`
	SchedulerEnabled     bool     `mapstructure:"SCHEDULER_ENABLED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("WAREHOUSE_EXPORT_DIR", "exports")
	v.SetDefault("SCHEDULER_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SECRET_KEY")
	v.BindEnv("ACCESS_TOKEN_EXPIRE_MINUTES")
	v.BindEnv("ENCRYPTION_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("WAREHOUSE_EXPORT_DIR")
	v.BindEnv("WAREHOUSE_UPLOAD_URL")
	v.BindEnv("WAREHOUSE_PIPELINE_URL")
	v.BindEnv("SCHEDULER_ENABLED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMin) * time.Minute
}

// Validate checks that the configuration is safe to run. SECRET_KEY and
// ENCRYPTION_KEY are always required: tokens cannot be issued and patient
// fields cannot be stored without them. ENCRYPTION_KEY must be a 64-character
// hex string (32 bytes decoded).
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.IsProduction() && len(c.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters in production, got %d", len(c.SecretKey))
	}

	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	keyBytes, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
	}

	if c.AccessTokenExpireMin <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMin)
	}

	return nil
}
