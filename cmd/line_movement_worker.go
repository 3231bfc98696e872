/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/odds-tracker/internal/bootstrap"
	"github.com/spf13/cobra"
)

// lineMovementWorkerCmd represents the line-movement-worker command
var lineMovementWorkerCmd = &cobra.Command{
	Use:   "line-movement-worker",
	Short: "Recompute line movements after each collection",
	Long: `The line movement worker consumes odds collected events, refreshes the
cached line movement report of every collected event and publishes a line
move event for each event whose lines moved.`,
	Run: bootstrap.StartLineMovementWorker,
}

func init() {
	rootCmd.AddCommand(lineMovementWorkerCmd)
}
