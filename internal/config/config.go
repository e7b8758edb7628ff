// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first if present; real
// environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port           int      `env:"PORT" envDefault:"5050"`
		PublicBaseURL  string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:5050"`
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		TLSCertFile    string   `env:"TLS_CERT_FILE"`
		TLSKeyFile     string   `env:"TLS_KEY_FILE"`
		// Reads are public by default so the door staff can look
		// participants up without logging in.
		ReadsRequireAuth bool `env:"READS_REQUIRE_AUTH" envDefault:"false"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"text"`
	}

	DB struct {
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DB_DSN" envDefault:"data/participants.db"`
	}

	Receipts struct {
		Backend  string `env:"RECEIPTS_BACKEND" envDefault:"disk"`
		Dir      string `env:"RECEIPTS_DIR" envDefault:"bills"`
		MaxBytes int64  `env:"MAX_RECEIPT_BYTES" envDefault:"10485760"`
	}

	S3 struct {
		Bucket          string `env:"S3_BUCKET"`
		Region          string `env:"S3_REGION" envDefault:"us-east-1"`
		Endpoint        string `env:"S3_ENDPOINT"`
		AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
		PathStyle       bool   `env:"S3_PATH_STYLE" envDefault:"false"`
		Prefix          string `env:"S3_PREFIX" envDefault:"bills/"`
	}

	Auth struct {
		Login        string        `env:"ADMIN_LOGIN" envDefault:"admin"`
		Password     string        `env:"ADMIN_PASSWORD"`
		PasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
		JWTSecret    string        `env:"JWT_SECRET,required"`
		TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	}

	// Redis is optional. Without it token revocations are kept in memory.
	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Intake struct {
		Key        string        `env:"INTAKE_KEY"`
		StaleAfter time.Duration `env:"INTAKE_STALE_AFTER" envDefault:"72h"`
	}
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing or contradictory values all at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Server.Port))
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}

	switch c.DB.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite, postgres or mysql, got %q", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}

	switch c.Receipts.Backend {
	case "disk":
		if c.Receipts.Dir == "" {
			errs = append(errs, errors.New("RECEIPTS_DIR is required for the disk backend"))
		}
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("RECEIPTS_BACKEND must be disk or s3, got %q", c.Receipts.Backend))
	}
	if c.Receipts.MaxBytes <= 0 {
		errs = append(errs, errors.New("MAX_RECEIPT_BYTES must be positive"))
	}

	if c.Auth.Login == "" {
		errs = append(errs, errors.New("ADMIN_LOGIN is required"))
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		errs = append(errs, errors.New("one of ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	if c.Intake.StaleAfter < 0 {
		errs = append(errs, errors.New("INTAKE_STALE_AFTER must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// LogLevel maps LOG_LEVEL to a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// TLS reports whether the server should serve HTTPS.
func (c *Config) TLS() bool {
	return c.Server.TLSCertFile != "" && c.Server.TLSKeyFile != ""
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
