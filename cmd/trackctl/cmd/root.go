package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trackctl",
	Short: "Volcanion Tracking CLI",
	Long: `trackctl is the command-line interface for the Volcanion tracking
service.

Manage partner API keys and seed synthetic event traffic against a
running instance.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}
