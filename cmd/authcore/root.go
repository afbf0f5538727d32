package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "Session tokens for the booking app",
		Long: `authcore issues, inspects and revokes signed session tokens, runs the
demo booking auth server, and manages the revocation schema.

Configuration is read from the environment (AUTH_*, REDIS_*, DATABASE_URL, LOGGER_*).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewTokenCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewLoadtestCmd())

	return cmd
}
