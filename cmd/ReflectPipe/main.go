package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/ReflectPipe/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDirName is created under the user's home directory.
	DefaultStateDirName = ".reflectpipe"
	// DefaultSessionsFileName is the JSON session log inside the state directory.
	DefaultSessionsFileName = "sessions.json"
	// DefaultLogLevel is used when REFLECT_LOG_LEVEL is unset.
	DefaultLogLevel = "info"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config := loadEnvironmentConfig()
	root := newRootCmd(config)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// Config holds environment configuration. Every field is the default for the
// matching persistent flag.
type Config struct {
	StateDir     string
	StoreDSN     string
	StoreDriver  string
	Scenarios    string
	FallbackType string
	AllowRepeat  bool
	OpenAIKey    string
	OpenAIModel  string
	LogLevel     string
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:     util.GetenvDefault("REFLECT_STATE_DIR", defaultStateDir()),
		StoreDSN:     util.GetenvDefault("REFLECT_STORE_DSN", ""),
		StoreDriver:  util.GetenvDefault("REFLECT_STORE_DRIVER", ""),
		Scenarios:    util.GetenvDefault("REFLECT_SCENARIOS", ""),
		FallbackType: util.GetenvDefault("REFLECT_FALLBACK_TYPE", ""),
		AllowRepeat:  util.ParseBoolEnv("REFLECT_ALLOW_REPEAT", false),
		OpenAIKey:    util.GetenvDefault("OPENAI_API_KEY", ""),
		OpenAIModel:  util.GetenvDefault("OPENAI_MODEL", ""),
		LogLevel:     util.GetenvDefault("REFLECT_LOG_LEVEL", DefaultLogLevel),
	}

	slog.Debug("environment variables loaded",
		"REFLECT_STATE_DIR", config.StateDir,
		"REFLECT_STORE_DSN_SET", config.StoreDSN != "",
		"REFLECT_STORE_DRIVER", config.StoreDriver,
		"REFLECT_SCENARIOS", config.Scenarios,
		"REFLECT_FALLBACK_TYPE", config.FallbackType,
		"REFLECT_ALLOW_REPEAT", config.AllowRepeat,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"REFLECT_LOG_LEVEL", config.LogLevel)
	return config
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("No home directory, using working directory for state", "error", err)
		return DefaultStateDirName
	}
	return filepath.Join(home, DefaultStateDirName)
}

// resolveStoreDSN returns the configured DSN, or the JSON log in stateDir.
func resolveStoreDSN(dsn, stateDir string) string {
	if dsn != "" {
		return dsn
	}
	return filepath.Join(stateDir, DefaultSessionsFileName)
}

// parseLogLevel maps a level name to a slog level; unknown names mean info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initializeLogger sends structured logs to stderr so they never mix with the interview.
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}
