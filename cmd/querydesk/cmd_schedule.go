package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/config"
	"github.com/user/querydesk/internal/scheduler"
	"github.com/user/querydesk/internal/types"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)

	scheduleAddCmd.Flags().String("name", "", "display name for the schedule")
	scheduleAddCmd.Flags().String("cron", "", "cron expression, e.g. \"0 9 * * *\" for 9am daily")
	scheduleAddCmd.Flags().StringP("source", "s", "", "source to run the query against")
	scheduleAddCmd.MarkFlagRequired("cron")
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled query re-runs",
}

func newScheduleStore(cfg *config.Config) *scheduler.Store {
	return scheduler.NewStore(filepath.Join(cfg.DataDir, "schedules.json"))
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <query>",
	Short: "Schedule a query to re-run on a cron expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		expr, _ := cmd.Flags().GetString("cron")
		if err := scheduler.Validate(expr); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = args[0]
			if len(name) > 40 {
				name = name[:37] + "..."
			}
		}
		source, _ := cmd.Flags().GetString("source")

		sq := &types.ScheduledQuery{
			ID:        types.NewScheduleID(),
			Name:      name,
			Query:     args[0],
			Source:    source,
			Schedule:  expr,
			Enabled:   true,
			CreatedAt: time.Now().UTC(),
		}
		if err := newScheduleStore(cfg).Add(context.Background(), sq); err != nil {
			return fmt.Errorf("add schedule: %w", err)
		}
		fmt.Printf("Scheduled %q (%s) as %s.\n", sq.Name, sq.Schedule, shortID(string(sq.ID)))
		fmt.Println("Run `querydesk serve` to keep schedules firing.")
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		schedules, err := newScheduleStore(cfg).List(context.Background())
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		if len(schedules) == 0 {
			fmt.Println("No scheduled queries.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCRON\tSOURCE\tENABLED\tQUERY")
		for _, sq := range schedules {
			query := sq.Query
			if len(query) > 50 {
				query = query[:47] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
				shortID(string(sq.ID)), sq.Name, sq.Schedule, sq.Source, sq.Enabled, query)
		}
		return w.Flush()
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a scheduled query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		store := newScheduleStore(cfg)
		ctx := context.Background()
		schedules, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		for _, sq := range schedules {
			if string(sq.ID) == args[0] || shortID(string(sq.ID)) == args[0] {
				if err := store.Remove(ctx, sq.ID); err != nil {
					return fmt.Errorf("remove schedule: %w", err)
				}
				fmt.Printf("Removed %q.\n", sq.Name)
				return nil
			}
		}
		return fmt.Errorf("no schedule matches %q", args[0])
	},
}
