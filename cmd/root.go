package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatd",
	Short: "Chat backend",
	Long: `chatd serves the chat API: rooms, memberships, paged message history
and attachments.

Available commands:
  serve    Run the HTTP server
  seed     Fill the database with fake users, rooms and messages

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
