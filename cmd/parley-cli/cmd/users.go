package cmd

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
	"github.com/spf13/cobra"
)

var (
	userID       string
	userUsername string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the chat core's user records",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a user record",
	Long: `Add a user record mirroring an account of the identity provider.

Examples:
  parley-cli users add --id 42 --username maria`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user := &domain.User{ID: userID, Username: userUsername}
		if err := domain.Validate(user); err != nil {
			return err
		}
		return withStorage(cmd, func(ctx context.Context, _ config.Provider, s *app.Storage) error {
			created, err := s.Users.Create(ctx, user)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", created.ID, created.Username)
			return nil
		})
	},
}

func init() {
	usersAddCmd.Flags().StringVar(&userID, "id", "", "user id (required)")
	usersAddCmd.Flags().StringVar(&userUsername, "username", "", "display name (required)")
	_ = usersAddCmd.MarkFlagRequired("id")
	_ = usersAddCmd.MarkFlagRequired("username")

	usersCmd.AddCommand(usersAddCmd)
	rootCmd.AddCommand(usersCmd)
}
