package cmd

import (
	"fmt"

	"github.com/nfrund/parley/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Parley CLI",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Parley CLI %s\n", config.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
