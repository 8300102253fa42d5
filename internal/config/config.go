package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	ArtifactRoot string
	InboxDir     string

	PreviewStartSeconds  int
	PreviewLengthSeconds int

	TaskTimeoutSeconds   int
	TaskRetentionSeconds int

	DifficultyPolicyPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	// A local .env is honored when present; real env vars win.
	_ = godotenv.Load()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:             addr,
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		LogLevel:             envDefault("LOG_LEVEL", "info"),
		ArtifactRoot:         envDefault("ARTIFACT_ROOT", "output"),
		InboxDir:             os.Getenv("INBOX_DIR"),
		PreviewStartSeconds:  envIntDefault("PREVIEW_START_SECONDS", 10),
		PreviewLengthSeconds: envIntDefault("PREVIEW_LENGTH_SECONDS", 30),
		TaskTimeoutSeconds:   envIntDefault("TASK_TIMEOUT_SECONDS", 600),
		TaskRetentionSeconds: envIntDefault("TASK_RETENTION_SECONDS", 3600),
		DifficultyPolicyPath: os.Getenv("DIFFICULTY_POLICY_PATH"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

func (c Config) TaskRetention() time.Duration {
	return time.Duration(c.TaskRetentionSeconds) * time.Second
}
