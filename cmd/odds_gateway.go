/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/odds-tracker/internal/bootstrap"
	"github.com/spf13/cobra"
)

// oddsGatewayCmd represents the odds-gateway command
var oddsGatewayCmd = &cobra.Command{
	Use:   "odds-gateway",
	Short: "Start the odds HTTP gateway",
	Long: `The odds gateway serves stored events, offers, line movements and
team profiles over HTTP, triggers collections on demand and streams line
moves to websocket clients.`,
	Run: bootstrap.StartOddsGateway,
}

func init() {
	rootCmd.AddCommand(oddsGatewayCmd)
}
