// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/adapter/otel"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port                string
	DatabasePath        string
	RegistrationURL     string
	RegistrationToken   string
	RegistrationTimeout time.Duration
	SessionTTL          time.Duration
	SweepInterval       time.Duration
	OTel                otel.Config
}

// FromEnv builds Config from environment variables with sensible defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:              envOrDefault("PORT", "8080"),
		DatabasePath:      envOrDefault("DATABASE_PATH", "fleetsignup.db"),
		RegistrationURL:   envOrDefault("REGISTRATION_URL", "http://localhost:8000/api/v1/auth/register"),
		RegistrationToken: os.Getenv("REGISTRATION_TOKEN"),
	}

	var err error
	if cfg.RegistrationTimeout, err = durationOrDefault("REGISTRATION_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationOrDefault("SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL == 0 {
		return Config{}, fmt.Errorf("SESSION_TTL: must be positive, got %q", os.Getenv("SESSION_TTL"))
	}
	if cfg.SweepInterval, err = durationOrDefault("SWEEP_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}

	env := envOrDefault("OTEL_ENVIRONMENT", "development")
	cfg.OTel = otel.Config{
		ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "fleetsignup"),
		ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    env,
		Exporter:       envOrDefault("OTEL_EXPORTER", otel.ExporterStdout),
		Insecure:       env == "development",
	}
	if raw := os.Getenv("OTEL_SAMPLE_RATIO"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return Config{}, fmt.Errorf("OTEL_SAMPLE_RATIO: want a number between 0 and 1, got %q", raw)
		}
		cfg.OTel.SampleRatio = ratio
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %s", key, raw)
	}
	return d, nil
}
