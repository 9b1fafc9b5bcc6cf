// Package config reads service configuration from the environment.
// The mains call godotenv.Load before Load so a local .env works.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Mongo
	MongoURI string
	MongoDB  string

	// OpenAI providers
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	TranscribeModel string
	TextModel       string

	// Web surface
	Port          string
	ProcessInline bool
	MaxFileMB     int

	// Poller
	PollInterval time.Duration
	BatchLimit   int
}

func Load() Config {
	cfg := Config{
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDB:         envOr("MONGO_DB", "audio_notes"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TranscribeModel: envOr("OPENAI_TRANSCRIBE_MODEL", "gpt-4o-transcribe"),
		TextModel:       envOr("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
		Port:            envOr("PORT", "8080"),
		ProcessInline:   envOr("PROCESS_INLINE", "false") == "true",
		MaxFileMB:       envInt("MAX_FILE_MB", 10),
		PollInterval:    time.Duration(envInt("POLL_INTERVAL_SEC", 5)) * time.Second,
		BatchLimit:      envInt("BATCH_LIMIT", 10),
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = composeMongoURI()
	}
	return cfg
}

// composeMongoURI builds a URI from host/port/user/password env vars when
// MONGO_URI is not set directly.
func composeMongoURI() string {
	host := envOr("MONGO_HOST", "mongodb")
	port := envOr("MONGO_PORT", "27017")
	db := envOr("MONGO_DB", "audio_notes")
	user := os.Getenv("MONGO_USER")
	password := os.Getenv("MONGO_PASSWORD")
	if user != "" && password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin", user, password, host, port, db)
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", host, port, db)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
