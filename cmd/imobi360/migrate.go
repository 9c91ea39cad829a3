package main

import (
	"fmt"

	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/migration"
	"github.com/smallbiznis/imobi360/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		conn, err := db.New(nil, cfg, zap.NewNop())
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := migration.Run(conn); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migrations (postgres only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlDB, err := migration.OpenPostgres(config.Load())
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := migration.Down(sqlDB, migrateSteps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", migrateSteps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version (postgres only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlDB, err := migration.OpenPostgres(config.Load())
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		version, dirty, err := migration.Version(sqlDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}
