/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/odds-tracker/internal/bootstrap"
	"github.com/spf13/cobra"
)

// lineMovementCmd represents the line-movement command
var lineMovementCmd = &cobra.Command{
	Use:   "line-movement",
	Short: "Print the line movement report",
	Run:   bootstrap.StartLineMovement,
}

func init() {
	rootCmd.AddCommand(lineMovementCmd)
	lineMovementCmd.Flags().String("event", "", "only report this event id")
}
