package main

import (
	"database/sql"

	"github.com/bookwell/authcore/revocation"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the revocation table",
		Long:  `Apply pending revocation schema migrations to the PostgreSQL database at DATABASE_URL.`,
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	proc, err := loadProcessConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if proc.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	cmd.Println("Connecting to database...")
	db, err := sql.Open("pgx", proc.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open database").Wrap(err)
	}
	defer db.Close()

	if err := db.PingContext(cmd.Context()); err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}

	cmd.Println("Running migrations...")
	if err := revocation.RunMigrations(cmd.Context(), db); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
