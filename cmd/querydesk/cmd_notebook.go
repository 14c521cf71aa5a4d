package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/config"
	"github.com/user/querydesk/internal/interpret"
	"github.com/user/querydesk/internal/notebook"
	"github.com/user/querydesk/internal/types"
)

func init() {
	rootCmd.AddCommand(notebookCmd)
	notebookCmd.AddCommand(notebookAnalyzeCmd)
	notebookCmd.AddCommand(notebookRunCmd)

	notebookAnalyzeCmd.Flags().String("history", "", "seed the notebook from a history entry")
	notebookAnalyzeCmd.Flags().String("var", "df", "variable name the result is loaded as")
	notebookAnalyzeCmd.Flags().StringP("out", "o", "", "write the notebook to this file instead of running interactively")
}

var notebookCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Analyze query results in a Python sandbox",
}

func newRunner(cfg *config.Config) (*notebook.PythonRunner, error) {
	workdir, err := os.MkdirTemp("", "querydesk-nb-*")
	if err != nil {
		return nil, fmt.Errorf("create notebook workdir: %w", err)
	}
	timeout := time.Duration(cfg.Notebook.CellTimeoutSeconds) * time.Second
	return notebook.NewPythonRunner(cfg.Notebook.Python, workdir, timeout)
}

var notebookAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Open a sandbox seeded with a query result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		varName, _ := cmd.Flags().GetString("var")
		historyID, _ := cmd.Flags().GetString("history")

		var entry *types.HistoryEntry
		if historyID != "" {
			entry, err = hist.Get(ctx, types.EntryID(historyID))
			if err != nil {
				return err
			}
		} else {
			// Default to the newest entry that produced a result.
			entries, err := hist.List(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Result != "" {
					entry = e
					break
				}
			}
			if entry == nil {
				return fmt.Errorf("no query results to analyze; run a query first")
			}
		}
		if entry.Result == "" {
			return fmt.Errorf("entry %s has no result to analyze", shortID(string(entry.ID)))
		}
		res := interpret.Interpret(entry.Result)
		if res == nil || res.Kind != interpret.KindTable {
			return fmt.Errorf("entry %s does not hold a tabular result", shortID(string(entry.ID)))
		}

		runner, err := newRunner(cfg)
		if err != nil {
			return err
		}
		nb := notebook.New(runner)
		cell, err := nb.SeedResult(varName, res.Table)
		if err != nil {
			return fmt.Errorf("seed result: %w", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if out != "" {
			if err := nb.Save(out); err != nil {
				return fmt.Errorf("save notebook: %w", err)
			}
			fmt.Printf("Notebook written to %s (%d rows seeded as %s).\n",
				out, len(res.Table.Rows), varName)
			return nil
		}

		result, err := nb.RunCell(ctx, cell.ID)
		if err != nil {
			return fmt.Errorf("run seed cell: %w", err)
		}
		fmt.Printf("Result loaded as %s (%d rows, %d columns).\n\n",
			varName, len(res.Table.Rows), len(res.Table.Columns))
		fmt.Println(result.Primary())

		return notebookREPL(ctx, nb)
	},
}

// notebookREPL reads Python snippets from stdin, one cell per line,
// until :quit. Namespace persists between cells.
func notebookREPL(ctx context.Context, nb *notebook.Notebook) error {
	fmt.Println("\nEnter Python, one cell per line. :save <file> writes the notebook, :quit exits.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return nil
		case strings.HasPrefix(line, ":save"):
			path := strings.TrimSpace(strings.TrimPrefix(line, ":save"))
			if path == "" {
				fmt.Println("Usage: :save <file>")
				continue
			}
			if err := nb.Save(path); err != nil {
				fmt.Printf("Save failed: %v\n", err)
				continue
			}
			fmt.Printf("Notebook saved to %s.\n", path)
		default:
			cell := nb.AppendCell(notebook.CellCode, line)
			result, err := nb.RunCell(ctx, cell.ID)
			if err != nil {
				fmt.Printf("Cell failed: %v\n", err)
				continue
			}
			if out := result.Primary(); out != "" {
				fmt.Println(out)
			}
		}
	}
}

var notebookRunCmd = &cobra.Command{
	Use:   "run <notebook.json>",
	Short: "Run every cell of a saved notebook top to bottom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		runner, err := newRunner(cfg)
		if err != nil {
			return err
		}
		nb, err := notebook.Load(runner, args[0])
		if err != nil {
			return fmt.Errorf("load notebook: %w", err)
		}

		nb.RunAll(context.Background(), time.Duration(cfg.Notebook.RunAllDelayMS)*time.Millisecond)

		for i, cell := range nb.Cells() {
			fmt.Printf("--- cell %d (%s) ---\n", i+1, cell.Type)
			fmt.Println(cell.Source)
			if cell.Output != nil {
				fmt.Println(cell.Output.Primary())
			}
		}
		if err := nb.Save(args[0]); err != nil {
			return fmt.Errorf("save notebook: %w", err)
		}
		fmt.Printf("Notebook saved to %s.\n", filepath.Clean(args[0]))
		return nil
	},
}
