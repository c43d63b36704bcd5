package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/messages"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyBefore string
)

var historyCmd = &cobra.Command{
	Use:   "history <roomID>",
	Short: "Print a room's most recent messages, oldest first",
	Long: `Print a room's most recent messages, oldest first.

Examples:
  parley-cli history 01J9Z6... --limit 20
  parley-cli history 01J9Z6... --before 01J9Z7...   # page further back`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, cfg config.Provider, s *app.Storage) error {
			store := newStore(cfg, s)
			msgs, err := store.History(ctx, args[0], historyLimit, historyBefore)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), msgs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tID\tFROM\tMESSAGE")
			for _, m := range msgs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", chat.Timestamp(m.CreatedAt), m.ID, m.SenderUsername, m.Content)
			}
			return w.Flush()
		})
	},
}

var unreadCmd = &cobra.Command{
	Use:   "unread <user>",
	Short: "Count a user's unread messages across all rooms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, cfg config.Provider, s *app.Storage) error {
			n, err := newStore(cfg, s).UnreadCount(ctx, args[0])
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"unread_count": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

func newStore(cfg config.Provider, s *app.Storage) *messages.Store {
	return messages.NewStore(s.Messages, s.Rooms, s.Users,
		messages.WithMaxLength(cfg.GetMaxMessageLength()),
		messages.WithLogger(cmdLogger()),
	)
}

func cmdLogger() *slog.Logger {
	return slog.Default().With("component", "parley-cli")
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", messages.DefaultHistoryLimit, "number of messages (max 200)")
	historyCmd.Flags().StringVar(&historyBefore, "before", "", "only messages older than this message id")
	rootCmd.AddCommand(historyCmd, unreadCmd)
}
