package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/session"
	"github.com/user/querydesk/internal/types"
)

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringP("source", "s", "", "pin the query to a source instead of auto-detecting")
	queryCmd.Flags().Bool("no-execute", false, "generate code and SQL without running them")
	queryCmd.Flags().Bool("langgraph", false, "use the alternate LangGraph processing endpoint")
	queryCmd.Flags().Bool("save", false, "save the query to favorites")
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Submit a one-shot natural language query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		store, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		backend := newBackend(cfg)
		if status, err := backend.Status(ctx); err == nil && !status.LLMConfigured {
			hint := "the backend has no LLM API key configured; run `querydesk api-key set`"
			if status.LLMError != "" {
				hint += " (" + status.LLMError + ")"
			}
			return fmt.Errorf("%s", hint)
		}

		source, _ := cmd.Flags().GetString("source")
		if source != "" {
			if ok, err := store.Connect(ctx, source); err != nil {
				return fmt.Errorf("connect %s: %w", source, err)
			} else if !ok {
				return fmt.Errorf("backend refused connection: %s", store.LastError())
			}
		}

		noExecute, _ := cmd.Flags().GetBool("no-execute")
		langGraph, _ := cmd.Flags().GetBool("langgraph")
		text := strings.Join(args, " ")

		outcome := store.SubmitQuery(ctx, text, !noExecute, source, langGraph || cfg.Backend.UseLangGraph)
		printOutcome(store, outcome)

		if save, _ := cmd.Flags().GetBool("save"); save {
			entries, err := hist.List(ctx)
			if err != nil || len(entries) == 0 {
				return fmt.Errorf("save favorite: no history entry recorded")
			}
			entry := entries[0]
			entry.Favorite = true
			entry.AddTag("favorite")
			if err := hist.Update(ctx, entry); err != nil {
				return fmt.Errorf("save favorite: %w", err)
			}
			fmt.Printf("\nSaved to favorites (%s).\n", entry.ID)
		}

		if outcome.Kind == types.OutcomeTransportFailure || outcome.Kind == types.OutcomeApplicationFailure {
			return fmt.Errorf("query failed")
		}
		return nil
	},
}

// printOutcome renders one query outcome for the terminal. Execution errors
// get their own heading, ranked above the generic error line.
func printOutcome(store *session.Store, outcome *types.QueryOutcome) {
	if outcome.Source != "" {
		fmt.Printf("Source: %s\n\n", outcome.Source)
	}
	if outcome.Code != "" {
		fmt.Printf("Generated code:\n%s\n\n", outcome.Code)
	}
	if outcome.SQL != "" {
		fmt.Printf("SQL:\n%s\n\n", outcome.SQL)
	}
	if res := store.Interpreted(); res != nil && outcome.Kind == types.OutcomeSuccess {
		fmt.Printf("Result:\n%s\n", res.Text)
	}
	if outcome.Explanation != "" {
		fmt.Printf("\n%s\n", outcome.Explanation)
	}

	switch outcome.Kind {
	case types.OutcomeExecutionFailure:
		fmt.Printf("\nEXECUTION ERROR: %s\n", outcome.Err)
	case types.OutcomeApplicationFailure:
		fmt.Printf("\nError: %s\n", outcome.Err)
	case types.OutcomeTransportFailure:
		fmt.Printf("\nError: %s\n", outcome.Err)
	}
}
