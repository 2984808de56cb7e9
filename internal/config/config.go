package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	UsersFile   string
	DatabaseURL string

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration

	KafkaBrokers []string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr: EnvDefault("LISTEN_ADDR", ":8080"),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		UsersFile:   EnvDefault("USERS_FILE", "data/users.json"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
		RefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:     EnvDurationDefault("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    EnvDurationDefault("JWT_REFRESH_TTL", 7*24*time.Hour),
		Leeway:        EnvDurationDefault("JWT_LEEWAY", 0),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
