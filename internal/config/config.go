package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string
	LogLevel      string
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	UndoWindow    time.Duration
	Location      *time.Location
}

func Load() (Config, error) {
	loadDotEnv(".env")

	loc, err := loadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/readinglist.db"),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		UndoWindow:    time.Duration(getEnvInt("UNDO_WINDOW_SECONDS", 5)) * time.Second,
		Location:      loc,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Env != "development" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, production")
	}
	if c.Env == "production" && c.JWTSecret == "change-this-secret" {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.UndoWindow <= 0 {
		return errors.New("UNDO_WINDOW_SECONDS must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL_HOURS must be positive")
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// loadDotEnv copies KEY=VALUE lines from path into the environment without
// overriding variables that are already set.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, strings.Trim(strings.TrimSpace(value), `"`))
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
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

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
