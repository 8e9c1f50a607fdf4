package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Insecure placeholder secrets that must never reach production
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"internal-secret":                      true,
	"": true,
}

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	Panel          PanelConfig
	Billing        BillingConfig
	Nats           NatsConfig
	Mail           MailConfig
	InternalSecret string
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Schema   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type PanelConfig struct {
	BaseURL string
	APIKey  string
}

type BillingConfig struct {
	SweepEnabled  bool
	SweepInterval time.Duration
}

type NatsConfig struct {
	URL     string
	Subject string
}

type MailConfig struct {
	Enabled bool
}

func Load() *Config {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8006"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "hostara_user"),
			Password: getEnv("DB_PASSWORD", "hostara_pass"),
			DBName:   getEnv("DB_NAME", "hostara_db"),
			Schema:   getEnv("DB_SCHEMA", "billing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
		Panel: PanelConfig{
			BaseURL: getEnv("PANEL_BASE_URL", "http://localhost:8080"),
			APIKey:  getEnv("PANEL_API_KEY", ""),
		},
		Billing: BillingConfig{
			SweepEnabled:  getEnvBool("BILLING_SWEEP_ENABLED", true),
			SweepInterval: getEnvDuration("BILLING_SWEEP_INTERVAL", time.Hour),
		},
		Nats: NatsConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_NOTIFY_SUBJECT", "notifications.send"),
		},
		Mail: MailConfig{
			Enabled: getEnvBool("MAIL_ENABLED", false),
		},
		InternalSecret: getEnv("INTERNAL_SECRET", ""),
	}

	// Secrets stay out of the log line.
	log.Printf("[config] Billing Service loaded: port=%s db=%s/%s.%s panel=%s sweep=%v/%v",
		cfg.Server.Port, cfg.Database.Host, cfg.Database.DBName, cfg.Database.Schema,
		cfg.Panel.BaseURL, cfg.Billing.SweepEnabled, cfg.Billing.SweepInterval)

	return cfg
}

// Validate rejects configurations that would run with missing or
// placeholder secrets.
func (c *Config) Validate() error {
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}

	if insecureDefaults[c.InternalSecret] {
		return fmt.Errorf("INTERNAL_SECRET must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.InternalSecret) < 32 {
		return fmt.Errorf("INTERNAL_SECRET must be at least 32 characters long")
	}

	if c.Panel.APIKey == "" {
		return fmt.Errorf("PANEL_API_KEY must be set")
	}

	if c.Billing.SweepInterval < time.Minute {
		return fmt.Errorf("BILLING_SWEEP_INTERVAL must be at least 1m")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
