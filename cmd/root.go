package cmd

import (
	"fmt"
	"os"

	"Bside/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bside",
	Short: "B-Side Records label service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
