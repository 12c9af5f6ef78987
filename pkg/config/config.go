package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"pingguard/pkg/logger"
	"pingguard/pkg/util"
)

type Config struct {
	APIBaseURL      string        `env:"API_BASE_URL"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT_SECONDS"`
	SessionFile     string        `env:"SESSION_FILE"`
	CaptureSchedule string        `env:"CAPTURE_SCHEDULE"`
	StatusPolicy    string        `env:"STATUS_POLICY"`
	GeoLatitude     float64       `env:"GEO_LATITUDE"`
	GeoLongitude    float64       `env:"GEO_LONGITUDE"`
	GeoConfigured   bool
	GeoTimeout      time.Duration `env:"GEO_TIMEOUT_SECONDS"`
	Log             logger.LogConfig
}

func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := &Config{
		APIBaseURL:      util.GetEnvDefault("API_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout:  secondsOr("REQUEST_TIMEOUT_SECONDS", 15),
		SessionFile:     util.GetEnvDefault("SESSION_FILE", defaultSessionFile()),
		CaptureSchedule: util.GetEnvDefault("CAPTURE_SCHEDULE", "@every 5m"),
		StatusPolicy:    util.GetEnvDefault("STATUS_POLICY", "any"),
		GeoLatitude:     util.GetFloatEnv("GEO_LATITUDE"),
		GeoLongitude:    util.GetFloatEnv("GEO_LONGITUDE"),
		GeoConfigured:   util.GetEnv("GEO_LATITUDE") != "" && util.GetEnv("GEO_LONGITUDE") != "",
		GeoTimeout:      secondsOr("GEO_TIMEOUT_SECONDS", 10),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
	}
	return cfg, nil
}

func secondsOr(key string, def int64) time.Duration {
	if v := util.GetIntEnv(key); v > 0 {
		return time.Duration(v) * time.Second
	}
	return time.Duration(def) * time.Second
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".pingguard-session.json"
	}
	return filepath.Join(dir, "pingguard", "session.json")
}
