/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/odds-tracker/internal/bootstrap"
	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a single collection and print a summary",
	Run:   bootstrap.StartCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().String("provider", "kambi", "provider kambi|theoddsapi")
	collectCmd.Flags().String("league", "nfl", "league nfl|ncaaf")
	collectCmd.Flags().Bool("store", true, "store the collected events")
}
