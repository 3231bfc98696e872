/*
Copyright © 2024 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/odds-tracker/internal/bootstrap"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "run goose migrations for the odds database",
	Long: `Run goose migrations from migration/postgresql/<databaseName> against the
database of the same name in config.yml.

  odds-tracker migrate --action up
  odds-tracker migrate --action down-to --version 20260101000002
  odds-tracker migrate --action create --name add_event_status`,
	Run: bootstrap.StartMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().String("action", "up", "action create|up|up-by-one|up-to|down|down-to|reset|status|version")
	migrateCmd.PersistentFlags().Int64("version", 1, "target version for up-to and down-to")
	migrateCmd.PersistentFlags().String("name", "", "migration name for create")
	migrateCmd.PersistentFlags().String("databaseName", constant.OddsDatabaseName, "database name")
}
