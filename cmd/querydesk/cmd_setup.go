package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("QueryDesk Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Backend base URL
		cfg.Backend.BaseURL = prompt(scanner, "Backend base URL", cfg.Backend.BaseURL)

		// 2. Request timeout
		timeoutStr := prompt(scanner, "Request timeout (seconds)", strconv.Itoa(cfg.Backend.TimeoutSeconds))
		if n, err := strconv.Atoi(timeoutStr); err == nil && n > 0 {
			cfg.Backend.TimeoutSeconds = n
		}

		// 3. LLM API key (optional; forwarded to the backend)
		cfg.Backend.APIKey = prompt(scanner, "LLM API key (optional)", cfg.Backend.APIKey)

		// 4. LangGraph processing
		lg := prompt(scanner, "Use LangGraph processing (y/n)", boolAnswer(cfg.Backend.UseLangGraph))
		cfg.Backend.UseLangGraph = strings.EqualFold(lg, "y") || strings.EqualFold(lg, "yes")

		// 5. Python interpreter for the analysis notebook
		cfg.Notebook.Python = prompt(scanner, "Python interpreter", cfg.Notebook.Python)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)

		ctx := context.Background()
		backend := newBackend(cfg)
		status, err := backend.Status(ctx)
		switch {
		case err != nil:
			fmt.Println("Backend is not reachable yet; start it and run `querydesk status`.")
		case cfg.Backend.APIKey != "" && !status.LLMConfigured:
			if err := backend.SetAPIKey(ctx, cfg.Backend.APIKey); err != nil {
				fmt.Printf("Could not forward the API key to the backend: %v\n", err)
			} else {
				fmt.Println("API key forwarded to the backend.")
			}
		default:
			fmt.Println("Backend is reachable.")
		}
		return nil
	},
}

func boolAnswer(v bool) string {
	if v {
		return "y"
	}
	return "n"
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
