package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/config"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeySetCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend and daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		fmt.Printf("Backend:    %s\n", cfg.Backend.BaseURL)

		status, err := newBackend(cfg).Status(context.Background())
		if err != nil {
			fmt.Println("Reachable:  no")
			fmt.Printf("            %v\n", err)
		} else {
			fmt.Println("Reachable:  yes")
			fmt.Printf("LangGraph:  %v\n", status.LangGraphAvailable)
			fmt.Printf("LLM key:    %v\n", status.LLMConfigured)
			if status.LLMError != "" {
				fmt.Printf("LLM error:  %s\n", status.LLMError)
			}
		}

		if pid, err := readPID(); err == nil {
			fmt.Printf("Daemon:     running (PID %d)\n", pid)
		} else {
			fmt.Println("Daemon:     not running")
		}
		return nil
	},
}

var apiKeyCmd = &cobra.Command{
	Use:   "api-key",
	Short: "Manage the backend's LLM API key",
}

var apiKeySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Send an LLM API key to the backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		key := ""
		if len(args) == 1 {
			key = args[0]
		} else if env := os.Getenv("GEMINI_API_KEY"); env != "" {
			key = env
		} else {
			fmt.Print("API key: ")
			scanner := bufio.NewScanner(os.Stdin)
			if scanner.Scan() {
				key = strings.TrimSpace(scanner.Text())
			}
		}
		if key == "" {
			return fmt.Errorf("no API key provided")
		}

		ctx := context.Background()
		backend := newBackend(cfg)
		if err := backend.SetAPIKey(ctx, key); err != nil {
			return fmt.Errorf("set API key: %w", err)
		}

		cfg.Backend.APIKey = key
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		if status, err := backend.Status(ctx); err == nil && status.LLMConfigured {
			fmt.Println("API key accepted; the backend is ready.")
		} else {
			fmt.Println("API key sent.")
		}
		return nil
	},
}
