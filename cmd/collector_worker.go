/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/odds-tracker/internal/bootstrap"
	"github.com/spf13/cobra"
)

// collectorWorkerCmd represents the collector-worker command
var collectorWorkerCmd = &cobra.Command{
	Use:   "collector-worker",
	Short: "Collect every configured provider and league on an interval",
	Run:   bootstrap.StartCollectorWorker,
}

func init() {
	rootCmd.AddCommand(collectorWorkerCmd)
}
