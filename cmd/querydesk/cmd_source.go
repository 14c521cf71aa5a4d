package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.AddCommand(sourceScanCmd, sourceStatusCmd, sourceConnectCmd, sourceGenerateCmd)
	sourceConnectCmd.Flags().Bool("all", false, "connect every existing source")
}

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage data sources",
}

var sourceScanCmd = &cobra.Command{
	Use:     "scan",
	Aliases: []string{"list"},
	Short:   "Discover available data sources",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		store, _, err := newSession(cfg)
		if err != nil {
			return err
		}

		sources, err := store.ScanSources(context.Background())
		if err != nil {
			return fmt.Errorf("scan sources: %w", err)
		}
		if len(sources) == 0 {
			fmt.Println("No data sources found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEXISTS\tKEYWORDS")
		for _, src := range sources {
			fmt.Fprintf(w, "%s\t%t\t%s\n", src.Name, src.Exists, strings.Join(src.Keywords, ", "))
		}
		return w.Flush()
	},
}

var sourceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show raw database file status, including files without metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		statuses, err := newBackend(cfg).SourceStatuses(context.Background())
		if err != nil {
			return fmt.Errorf("source status: %w", err)
		}
		if len(statuses) == 0 {
			fmt.Println("No database files found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tNAME\tMETADATA\tDOCS")
		for _, st := range statuses {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", st.DBFilename, st.DisplayName, st.HasJSON, st.HasMD)
		}
		return w.Flush()
	},
}

var sourceConnectCmd = &cobra.Command{
	Use:   "connect [name]",
	Short: "Connect to a data source (or all of them with --all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		store, _, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if _, err := store.ScanSources(ctx); err != nil {
			return fmt.Errorf("scan sources: %w", err)
		}

		all, _ := cmd.Flags().GetBool("all")
		if all {
			results := store.ConnectAll(ctx, int64(cfg.Connect.MaxConcurrent))
			if len(results) == 0 {
				fmt.Println("No existing sources to connect.")
				return nil
			}
			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONNECTED")
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%t\n", name, results[name])
			}
			return w.Flush()
		}

		if len(args) == 0 {
			return fmt.Errorf("source name required (or --all)")
		}
		name := args[0]
		ok, err := store.Connect(ctx, name)
		if err != nil {
			return fmt.Errorf("connect %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("backend refused connection: %s", store.LastError())
		}
		fmt.Printf("Connected to %s.\n", name)
		if md := store.CachedMetadata(name); md != nil {
			fmt.Printf("Schema: %d tables. Run `querydesk metadata show %s` to browse.\n", len(md.Tables), name)
		}
		return nil
	},
}

var sourceGenerateCmd = &cobra.Command{
	Use:   "generate <db_filename>",
	Short: "Ask the backend to generate metadata for a database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		if err := newBackend(cfg).GenerateMetadata(context.Background(), args[0]); err != nil {
			return fmt.Errorf("generate metadata: %w", err)
		}
		fmt.Printf("Metadata generation triggered for %s.\n", args[0])
		return nil
	},
}
