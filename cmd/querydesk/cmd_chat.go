package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/session"
	"github.com/user/querydesk/internal/types"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("source", "s", "", "pin the conversation to a source instead of auto-detecting")
	chatCmd.Flags().Bool("no-execute", false, "generate code and SQL without running them")
}

// sampleQueries mirrors the per-domain suggestions of the dashboard.
var sampleQueries = map[string][]string{
	"Broker":     {"List all customers and their email addresses", "Show me the top 5 stocks by trading volume"},
	"Dealership": {"List all car models with their prices", "Show top 5 salespeople by revenue"},
	"Ewallet":    {"Show me all transactions over $1000", "List users with highest wallet balance"},
	"TPCH":       {"List all suppliers and their regions", "Show orders with highest line item count"},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a multi-turn query conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		store, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		backend := newBackend(cfg)

		langGraph := cfg.Backend.UseLangGraph
		if status, err := backend.Status(ctx); err == nil {
			if !status.LLMConfigured {
				fmt.Println("Warning: the backend has no LLM API key configured; run `querydesk api-key set`.")
			}
			if langGraph && !status.LangGraphAvailable {
				fmt.Println("LangGraph processing unavailable, falling back to the standard endpoint.")
				langGraph = false
			}
		}

		source, _ := cmd.Flags().GetString("source")
		if source != "" {
			if ok, err := store.Connect(ctx, source); err != nil {
				return fmt.Errorf("connect %s: %w", source, err)
			} else if !ok {
				return fmt.Errorf("backend refused connection: %s", store.LastError())
			}
		}

		counter, err := session.NewTokenCounter(cfg.Chat.Tokenizer, cfg.Chat.MaxContextTokens)
		if err != nil {
			return fmt.Errorf("init token counter: %w", err)
		}

		noExecute, _ := cmd.Flags().GetBool("no-execute")

		fmt.Println("Ask questions about your data in plain English.")
		fmt.Println("Commands: :clear, :code, :sql, :save, :tokens, :quit")
		if samples, ok := sampleQueries[source]; ok {
			fmt.Println("Try for example:")
			for _, q := range samples {
				fmt.Printf("  %s\n", q)
			}
		}
		fmt.Println()

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, ":") {
				if quit := chatCommand(ctx, line, store, hist, counter); quit {
					break
				}
				continue
			}

			outcome := store.SubmitQuery(ctx, line, !noExecute, source, langGraph)
			fmt.Println()
			printOutcome(store, outcome)
			fmt.Println()

			if counter.OverBudget(store.Transcript()) {
				fmt.Println("Note: the conversation has outgrown the context budget; consider :clear.")
			}
		}
		return nil
	},
}

// chatCommand handles a ":"-prefixed REPL command; returns true to quit.
func chatCommand(ctx context.Context, line string, store *session.Store, hist types.HistoryStore, counter *session.TokenCounter) bool {
	switch line {
	case ":quit", ":q", ":exit":
		return true
	case ":clear":
		store.ClearConversation()
		store.ClearError()
		fmt.Println("Conversation cleared.")
	case ":code":
		if code := store.Bundle().Code; code != "" {
			fmt.Println(code)
		} else {
			fmt.Println("No code to display.")
		}
	case ":sql":
		if sql := store.Bundle().SQL; sql != "" {
			fmt.Println(sql)
		} else {
			fmt.Println("No SQL to display.")
		}
	case ":save":
		entries, err := hist.List(ctx)
		if err != nil || len(entries) == 0 {
			fmt.Println("Nothing to save yet.")
			break
		}
		entry := entries[0]
		entry.Favorite = true
		entry.AddTag("favorite")
		if err := hist.Update(ctx, entry); err != nil {
			fmt.Printf("Save failed: %v\n", err)
			break
		}
		fmt.Printf("Query saved to favorites (%s).\n", entry.ID)
	case ":tokens":
		used := counter.CountTranscript(store.Transcript())
		fmt.Printf("Transcript: %d turns, ~%d tokens.\n", len(store.Transcript()), used)
	default:
		fmt.Printf("Unknown command: %s\n", line)
	}
	return false
}
