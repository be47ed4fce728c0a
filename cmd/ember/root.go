package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ember",
		Short: "A minimal HTTP/1.1 server",
		Long: `ember is a minimal HTTP/1.1 server.

  Settings are read from EMBER_* environment variables first; flags given
  on the command line override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}
