package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Backend  struct {
		BaseURL        string `json:"base_url"`
		TimeoutSeconds int    `json:"timeout_seconds"`
		UseLangGraph   bool   `json:"use_langgraph"`
		APIKey         string `json:"api_key"`
	} `json:"backend"`
	Connect struct {
		MaxConcurrent int `json:"max_concurrent"`
	} `json:"connect"`
	Chat struct {
		Tokenizer        string `json:"tokenizer"`
		MaxContextTokens int    `json:"max_context_tokens"`
	} `json:"chat"`
	Notebook struct {
		Python             string `json:"python"`
		CellTimeoutSeconds int    `json:"cell_timeout_seconds"`
		RunAllDelayMS      int    `json:"run_all_delay_ms"`
	} `json:"notebook"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir: filepath.Join(os.Getenv("HOME"), ".querydesk"),
	}
	cfg.LogLevel = "info"
	cfg.Backend.BaseURL = "http://localhost:5001/api"
	cfg.Backend.TimeoutSeconds = 60
	cfg.Connect.MaxConcurrent = 2
	cfg.Chat.Tokenizer = "cl100k_base"
	cfg.Chat.MaxContextTokens = 128000
	cfg.Notebook.Python = "python3"
	cfg.Notebook.CellTimeoutSeconds = 120
	cfg.Notebook.RunAllDelayMS = 1000
	cfg.HTTP.Listen = "127.0.0.1:5050"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if baseURL := os.Getenv("QUERYDESK_BASE_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if dataDir := os.Getenv("QUERYDESK_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.Backend.APIKey = apiKey
	}

	return cfg, nil
}

// Save writes the config to path atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func writeDefaults(path string, cfg *Config) error {
	return Save(path, cfg)
}
