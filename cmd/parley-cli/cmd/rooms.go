package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/rooms"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Open and list 1:1 rooms",
}

var roomsOpenCmd = &cobra.Command{
	Use:   "open <userA> <userB>",
	Short: "Get or create the room shared by two users",
	Long: `Get or create the room shared by two users. The CHAT_POLICY setting
applies exactly as it does on the server.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, cfg config.Provider, s *app.Storage) error {
			reg := newRegistry(cfg, s)
			room, err := reg.GetOrCreateRoom(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printRooms(cmd, []*domain.Room{room})
		})
	},
}

var roomsListCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List a user's rooms, most recently active first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, cfg config.Provider, s *app.Storage) error {
			list, err := newRegistry(cfg, s).RoomsFor(ctx, args[0])
			if err != nil {
				return err
			}
			return printRooms(cmd, list)
		})
	},
}

func newRegistry(cfg config.Provider, s *app.Storage) *rooms.Registry {
	logger := cmdLogger()
	return rooms.NewRegistry(s.Rooms, s.Users,
		rooms.WithAuthorizer(app.Authorizer(cfg, logger)),
		rooms.WithLogger(logger),
	)
}

func printRooms(cmd *cobra.Command, list []*domain.Room) error {
	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), list)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPARTICIPANTS\tLAST ACTIVITY")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", r.ID, r.Name, r.Participants, r.LastActivity.Format(time.RFC3339))
	}
	return w.Flush()
}

func init() {
	roomsCmd.AddCommand(roomsOpenCmd, roomsListCmd)
	rootCmd.AddCommand(roomsCmd)
}
