package config

import (
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
	JWTSecret            string   `mapstructure:"JWT_SECRET"`
	Timezone             string   `mapstructure:"TIMEZONE"`
	SweepIntervalMinutes int      `mapstructure:"SWEEP_INTERVAL_MINUTES"`
	DoseLookbackHours    int      `mapstructure:"DOSE_LOOKBACK_HOURS"`
	SMTPHost             string   `mapstructure:"SMTP_HOST"`
	SMTPPort             int      `mapstructure:"SMTP_PORT"`
	SMTPUser             string   `mapstructure:"SMTP_USER"`
	SMTPPass             string   `mapstructure:"SMTP_PASS"`
	SMTPFrom             string   `mapstructure:"SMTP_FROM"`
	CORSOrigins          []string `mapstructure:"CORS_ORIGINS"`
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
	v.SetDefault("TIMEZONE", "America/Santiago")
	v.SetDefault("SWEEP_INTERVAL_MINUTES", 5)
	v.SetDefault("DOSE_LOOKBACK_HOURS", 24)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "alerts@carewatch.local")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TIMEZONE")
	v.BindEnv("SWEEP_INTERVAL_MINUTES")
	v.BindEnv("DOSE_LOOKBACK_HOURS")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USER")
	v.BindEnv("SMTP_PASS")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("CORS_ORIGINS")

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

// SweepInterval returns the reconciliation sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// DoseLookback returns the trailing window the sweep scans for ungiven doses.
func (c *Config) DoseLookback() time.Duration {
	return time.Duration(c.DoseLookbackHours) * time.Hour
}

// Location resolves the configured patient timezone. Medication schedule
// times-of-day are wall-clock values in this location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is required so that real authentication is enforced, and the
// scheduler windows must be sane.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is not development (current ENV=%q)", c.Env)
	}
	if c.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be positive, got %d", c.SweepIntervalMinutes)
	}
	if c.DoseLookbackHours <= 0 {
		return fmt.Errorf("DOSE_LOOKBACK_HOURS must be positive, got %d", c.DoseLookbackHours)
	}
	if c.DoseLookback() <= c.SweepInterval() {
		return fmt.Errorf("DOSE_LOOKBACK_HOURS (%dh) must exceed the sweep interval (%dm)",
			c.DoseLookbackHours, c.SweepIntervalMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
