package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/interpret"
	"github.com/user/querydesk/internal/types"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyFavoriteCmd)
	historyCmd.AddCommand(historyTagCmd)
	historyCmd.AddCommand(historyUntagCmd)

	historyListCmd.Flags().Bool("favorites", false, "only show favorited queries")
	historyListCmd.Flags().String("tag", "", "only show queries carrying this tag")
	historyListCmd.Flags().IntP("limit", "n", 20, "maximum number of entries to show")
	historyShowCmd.Flags().Bool("raw", false, "print the stored result without formatting")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage past queries",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past queries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		entries, err := hist.List(context.Background())
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}

		favOnly, _ := cmd.Flags().GetBool("favorites")
		tag, _ := cmd.Flags().GetString("tag")
		limit, _ := cmd.Flags().GetInt("limit")

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tSOURCE\tFAV\tTAGS\tQUERY")
		shown := 0
		for _, e := range entries {
			if favOnly && !e.Favorite {
				continue
			}
			if tag != "" && !e.HasTag(tag) {
				continue
			}
			if limit > 0 && shown >= limit {
				break
			}
			fav := ""
			if e.Favorite {
				fav = "*"
			}
			query := e.Query
			if len(query) > 60 {
				query = query[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(string(e.ID)), e.Timestamp.Format("2006-01-02 15:04"), e.Source, fav,
				strings.Join(e.Tags, ","), query)
			shown++
		}
		w.Flush()
		if shown == 0 {
			fmt.Println("No matching history entries.")
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a past query with its code, SQL and result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		entry, err := hist.Get(context.Background(), types.EntryID(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("ID:        %s\n", entry.ID)
		fmt.Printf("When:      %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("Source:    %s\n", entry.Source)
		fmt.Printf("Favorite:  %v\n", entry.Favorite)
		if len(entry.Tags) > 0 {
			fmt.Printf("Tags:      %s\n", strings.Join(entry.Tags, ", "))
		}
		fmt.Printf("Query:     %s\n", entry.Query)
		if entry.Code != "" {
			fmt.Printf("\nGenerated code:\n%s\n", entry.Code)
		}
		if entry.SQL != "" {
			fmt.Printf("\nSQL:\n%s\n", entry.SQL)
		}
		if entry.Result == "" {
			return nil
		}

		raw, _ := cmd.Flags().GetBool("raw")
		fmt.Println("\nResult:")
		if raw {
			fmt.Println(entry.Result)
			return nil
		}
		if res := interpret.Interpret(entry.Result); res != nil {
			switch res.Kind {
			case interpret.KindTable:
				fmt.Println(res.Table.Text())
			default:
				fmt.Println(res.Text)
			}
		}
		return nil
	},
}

var historyFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle the favorite flag on a past query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		entry, err := hist.Get(ctx, types.EntryID(args[0]))
		if err != nil {
			return err
		}
		entry.Favorite = !entry.Favorite
		if err := hist.Update(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if entry.Favorite {
			fmt.Printf("%s marked as favorite.\n", shortID(string(entry.ID)))
		} else {
			fmt.Printf("%s unmarked.\n", shortID(string(entry.ID)))
		}
		return nil
	},
}

var historyTagCmd = &cobra.Command{
	Use:   "tag <id> <tag>",
	Short: "Add a tag to a past query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		entry, err := hist.Get(ctx, types.EntryID(args[0]))
		if err != nil {
			return err
		}
		entry.AddTag(args[1])
		if err := hist.Update(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		fmt.Printf("Tags on %s: %s\n", shortID(string(entry.ID)), strings.Join(entry.Tags, ", "))
		return nil
	},
}

var historyUntagCmd = &cobra.Command{
	Use:   "untag <id> <tag>",
	Short: "Remove a tag from a past query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, hist, err := newSession(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		entry, err := hist.Get(ctx, types.EntryID(args[0]))
		if err != nil {
			return err
		}
		entry.RemoveTag(args[1])
		if err := hist.Update(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if len(entry.Tags) == 0 {
			fmt.Printf("%s has no tags.\n", shortID(string(entry.ID)))
		} else {
			fmt.Printf("Tags on %s: %s\n", shortID(string(entry.ID)), strings.Join(entry.Tags, ", "))
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
