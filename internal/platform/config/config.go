package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Addr               string        `toml:"addr"`
	Environment        string        `toml:"environment"`
	DBDriver           string        `toml:"db_driver"`
	DatabaseURL        string        `toml:"database_url"`
	RunMigrations      bool          `toml:"run_migrations"`
	MigrationsDir      string        `toml:"migrations_dir"`
	MaxBodyBytes       int64         `toml:"max_body_bytes"`
	RateLimitPerMinute int           `toml:"rate_limit_per_minute"`
	CORSAllowedOrigins []string      `toml:"cors_allowed_origins"`
	DefaultOverwrite   bool          `toml:"default_overwrite"`
	MetricsEnabled     bool          `toml:"metrics_enabled"`
	LogLevel           string        `toml:"log_level"`
	PDFFontPath        string        `toml:"pdf_font_path"`
	FrontendDir        string        `toml:"frontend_dir"`
	ShutdownTimeout    time.Duration `toml:"-"` // file key shutdown_timeout, see applyFileDurations
}

func Defaults() Config {
	return Config{
		Addr:               ":8080",
		Environment:        "development",
		DBDriver:           DriverPostgres,
		RunMigrations:      true,
		MigrationsDir:      "migrations",
		MaxBodyBytes:       10 << 20,
		RateLimitPerMinute: 60,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		DefaultOverwrite:   true,
		MetricsEnabled:     true,
		LogLevel:           "INFO",
		ShutdownTimeout:    30 * time.Second,
	}
}

// Load starts from Defaults, applies the TOML file named by CONFIG_FILE when
// set, then lets environment variables override individual keys.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := applyFileDurations(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Addr = getEnv("APP_ADDR", cfg.Addr)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.DBDriver = strings.ToLower(getEnv("DB_DRIVER", cfg.DBDriver))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RunMigrations = getEnvBool("RUN_MIGRATIONS", cfg.RunMigrations)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.DefaultOverwrite = getEnvBool("DEFAULT_OVERWRITE", cfg.DefaultOverwrite)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.PDFFontPath = getEnv("PDF_FONT_PATH", cfg.PDFFontPath)
	cfg.FrontendDir = getEnv("FRONTEND_DIR", cfg.FrontendDir)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	return cfg, nil
}

// applyFileDurations reads duration keys, which the file holds as Go duration
// strings such as "45s".
func applyFileDurations(data []byte, cfg *Config) error {
	var file struct {
		ShutdownTimeout string `toml:"shutdown_timeout"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.ShutdownTimeout != "" {
		parsed, err := time.ParseDuration(file.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = parsed
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
