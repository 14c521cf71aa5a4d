package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(metadataCmd)
	metadataCmd.AddCommand(metadataShowCmd)
	metadataShowCmd.Flags().Bool("refresh", false, "refetch metadata instead of using the cache")
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Browse schema metadata",
}

var metadataShowCmd = &cobra.Command{
	Use:   "show <source>",
	Short: "Show the table and column definitions for a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		store, _, err := newSession(cfg)
		if err != nil {
			return err
		}

		name := args[0]
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			store.InvalidateMetadata(name)
		}
		md, err := store.MetadataFor(context.Background(), name)
		if err != nil {
			return fmt.Errorf("load metadata: %w", err)
		}

		for _, table := range md.Tables {
			fmt.Printf("%s", table.Name)
			if table.Description != "" {
				fmt.Printf(" - %s", table.Description)
			}
			fmt.Println()

			cols := make([]string, 0, len(table.Columns))
			for col := range table.Columns {
				cols = append(cols, col)
			}
			sort.Strings(cols)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, col := range cols {
				meta := table.Columns[col]
				fmt.Fprintf(w, "  %s\t%s\t%s\n", col, meta.Type, meta.Description)
			}
			w.Flush()
			fmt.Println()
		}
		return nil
	},
}
