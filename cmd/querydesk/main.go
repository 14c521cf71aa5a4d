package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/config"
	"github.com/user/querydesk/internal/gateway"
	"github.com/user/querydesk/internal/history"
	"github.com/user/querydesk/internal/session"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "querydesk",
	Short: "Terminal client for a natural-language-to-SQL analytics backend",
	Long: `querydesk connects to an analytics backend that translates natural
language questions into query code and SQL, runs them, and returns results.
It manages data source connections, schema metadata, multi-turn query
conversations, query history, and a notebook-style analysis surface.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath,
		"config",
		filepath.Join(os.Getenv("HOME"), ".querydesk", "config.json"),
		"config file path")
}

// loadConfig loads the config or exits; commands call this at the top of RunE.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// newBackend builds the gateway client from config.
func newBackend(cfg *config.Config) *gateway.Client {
	return gateway.New(&gateway.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
	})
}

// newSession wires the session store with backend and history.
func newSession(cfg *config.Config) (*session.Store, *history.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	hist, err := history.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return session.New(newBackend(cfg), hist), hist, nil
}

func main() {
	// .env in the working directory, if present; real env wins.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
