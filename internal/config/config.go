// Package config resolves ragfeed's environment-driven configuration: the
// database DSN, model cache location, logging knobs, and output format,
// applying the same getEnv/getEnvInt/default/validate shape regardless of
// which subcommand is running.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures the environment-derived settings shared by every ragfeed
// subcommand. Flags that are specific to one subcommand (e.g. --tokens-target)
// live on that subcommand's own options struct, not here.
type Config struct {
	DSN          string
	LogDirective string
	LogFormat    string
	OutputFormat string
	OutputPretty bool
	NoColor      bool
	ModelCache   string
	ModelSource  ModelSourceConfig
	Database     DatabaseConfig
}

// ModelSourceConfig names the download URLs used to populate the model
// cache on a miss (internal/modelcache). Empty means "the file must already
// be cached" — ragfeed never guesses a Hugging Face Hub URL on its own.
type ModelSourceConfig struct {
	TokenizerURL string
	ModelURL     string
}

// DatabaseConfig captures the Postgres connection pool limits.
type DatabaseConfig struct {
	MaxConnections int
	StatementTimeoutMS int
}

// FromEnv builds a Config from the process environment, loading a .env file
// first if one is present (godotenv.Load silently no-ops when the file is
// absent). dsnOverride is the CLI's --dsn flag value, which always wins over
// DATABASE_URL when non-empty.
func FromEnv(dsnOverride string) (Config, error) {
	_ = godotenv.Load()

	_, noColor := os.LookupEnv("NO_COLOR")

	cfg := Config{
		DSN:          dsnOverride,
		LogDirective: getEnv("RUST_LOG", "info"),
		LogFormat:    getEnv("RAG_LOG_FORMAT", "json"),
		OutputFormat: getEnv("RAG_OUTPUT_FORMAT", "text"),
		OutputPretty: getEnvBool("RAG_OUTPUT_PRETTY", false),
		NoColor:      noColor,
		ModelCache:   getEnv("HF_HOME", defaultModelCache()),
		ModelSource: ModelSourceConfig{
			TokenizerURL: getEnv("RAG_MODEL_TOKENIZER_URL", ""),
			ModelURL:     getEnv("RAG_MODEL_URL", ""),
		},
		Database: DatabaseConfig{
			MaxConnections:     getEnvInt("RAG_DB_MAX_CONNECTIONS", 4),
			StatementTimeoutMS: getEnvInt("RAG_DB_STATEMENT_TIMEOUT_MS", 30_000),
		},
	}

	if cfg.DSN == "" {
		cfg.DSN = getEnv("DATABASE_URL", "")
	}
	if cfg.DSN == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set (or pass --dsn)")
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("RAG_LOG_FORMAT must be one of text, json, got %q", cfg.LogFormat)
	}

	switch strings.ToLower(cfg.OutputFormat) {
	case "text", "json", "mcp":
	default:
		return Config{}, fmt.Errorf("RAG_OUTPUT_FORMAT must be one of text, json, mcp, got %q", cfg.OutputFormat)
	}

	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 4
	}

	return cfg, nil
}

func defaultModelCache() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cache/huggingface"
	}
	return home + "/.cache/huggingface"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
