package config

import (
	"fmt"     // Error formatting
	"strings" // String manipulation
	"time"    // Durations and the season start

	"github.com/joho/godotenv" // For loading .env files
	"github.com/spf13/viper"   // Environment-backed configuration
)

// Config holds the application configuration
type Config struct {
	AppPort        string        `mapstructure:"APP_PORT"`             // Application port
	IsProd         bool          `mapstructure:"IS_PROD"`              // Is production environment
	LogLevel       string        `mapstructure:"LOG_LEVEL"`            // debug, info, warn or error
	TrustedProxies []string      `mapstructure:"TRUSTED_PROXIES"`      // Proxies gin trusts for client IPs
	DBDriver       string        `mapstructure:"DB_DRIVER"`            // mysql, postgres or sqlite
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`         // Full DSN, overrides the parts below
	DBUser         string        `mapstructure:"DB_USER"`              // Database user
	DBPassword     string        `mapstructure:"DB_PASSWORD"`          // Database password
	DBHost         string        `mapstructure:"DB_HOST"`              // Database host
	DBPort         string        `mapstructure:"DB_PORT"`              // Database port
	DBName         string        `mapstructure:"DB_NAME"`              // Database name
	JWTSecret      string        `mapstructure:"JWT_SECRET"`           // JWT secret key
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`          // Session token lifetime
	ConfirmTTL     time.Duration `mapstructure:"CONFIRM_TOKEN_TTL"`    // Confirmation token lifetime, 0 = never expires
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`           // Redis server address, empty disables caching
	RedisPass      string        `mapstructure:"REDIS_PASS"`           // Redis password
	RedisDB        int           `mapstructure:"REDIS_DB"`             // Redis database number
	CacheTTL       time.Duration `mapstructure:"CACHE_TTL"`            // Lifetime of cached listings
	SendGridAPIKey string        `mapstructure:"SENDGRID_API_KEY"`     // Empty logs mail instead of sending it
	EmailFrom      string        `mapstructure:"EMAIL_FROM"`           // Sender address
	EmailFromName  string        `mapstructure:"EMAIL_FROM_NAME"`      // Sender display name
	PublicURL      string        `mapstructure:"PUBLIC_URL"`           // Base URL of this API, used in confirm links
	FrontendURL    string        `mapstructure:"FRONTEND_URL"`         // Where /confirm redirects after success
	SeasonBase     string        `mapstructure:"SEASON_BASE_DEADLINE"` // Week 1 deadline, RFC 3339
	LockNewPicks   bool          `mapstructure:"LOCK_NEW_PICKS"`       // Deadline-gate initial submissions too
}

// LoadConfig loads configuration from the environment, after an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.TrustedProxies = splitList(cfg.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8000")
	v.SetDefault("IS_PROD", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRUSTED_PROXIES", []string{"127.0.0.1"})

	// Database defaults
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_USER", "survivor")
	v.SetDefault("DB_PASSWORD", "survivor")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "survivor")

	// Token defaults
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("CONFIRM_TOKEN_TTL", 72*time.Hour)

	// Redis defaults
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASS", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", 30*time.Second)

	// Mail defaults
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("EMAIL_FROM", "no-reply@survivor.local")
	v.SetDefault("EMAIL_FROM_NAME", "Survivor Pool")
	v.SetDefault("PUBLIC_URL", "http://localhost:8000")
	v.SetDefault("FRONTEND_URL", "")

	// Season defaults
	v.SetDefault("SEASON_BASE_DEADLINE", "2025-06-07T18:00:00Z")
	v.SetDefault("LOCK_NEW_PICKS", true)
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		if c.IsProd {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-only-insecure-secret" // Development fallback
	}
	if _, err := c.SeasonBaseDeadline(); err != nil {
		return err
	}
	return nil
}

// SeasonBaseDeadline parses SEASON_BASE_DEADLINE
func (c *Config) SeasonBaseDeadline() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.SeasonBase)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SEASON_BASE_DEADLINE %q: %w", c.SeasonBase, err)
	}
	return t.UTC(), nil
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	case "sqlite":
		return c.DBName + ".db"
	default:
		// Setup Data Source Name (DSN) for MySQL
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	}
}

// splitList expands comma separated values, which is how lists arrive from the environment
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
