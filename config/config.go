package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string
	ServerPort     int
	LogLevel       slog.Level
	MigrateOnStart bool

	EloKFactor        int
	DefaultRating     int
	ShuffleFirstRound bool

	CORSAllowedOrigins []string

	R2 R2Config
}

// R2Config описывает бакет для архива результатов. Архив выключен, если хоть одно поле пустое.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function, so tests don't touch the process env.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intVar(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
	}

	kFactor, err := intVar(getenv, "ELO_K_FACTOR", 32)
	if err != nil {
		return nil, err
	}
	if kFactor <= 0 {
		return nil, fmt.Errorf("ELO_K_FACTOR must be positive, got %d", kFactor)
	}

	defaultRating, err := intVar(getenv, "DEFAULT_RATING", 1200)
	if err != nil {
		return nil, err
	}
	if defaultRating < 0 {
		return nil, fmt.Errorf("DEFAULT_RATING must not be negative, got %d", defaultRating)
	}

	shuffle, err := boolVar(getenv, "SHUFFLE_FIRST_ROUND", false)
	if err != nil {
		return nil, err
	}
	migrateOnStart, err := boolVar(getenv, "MIGRATE_ON_START", true)
	if err != nil {
		return nil, err
	}

	origins := []string{"*"}
	if raw := getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		ServerPort:         port,
		LogLevel:           level,
		MigrateOnStart:     migrateOnStart,
		EloKFactor:         kFactor,
		DefaultRating:      defaultRating,
		ShuffleFirstRound:  shuffle,
		CORSAllowedOrigins: origins,
		R2: R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		},
	}

	return cfg, nil
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	raw := getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func boolVar(getenv func(string) string, name string, def bool) (bool, error) {
	raw := getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
