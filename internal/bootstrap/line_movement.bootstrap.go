package bootstrap

import (
	"context"
	"os"
	"strconv"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/oddsmath"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/krobus00/odds-tracker/internal/service/linemovement"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func StartLineMovement(cmd *cobra.Command, args []string) {
	eventID, _ := cmd.Flags().GetString("event")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oddsDB := connectOddsDatabase(ctx)
	defer oddsDB.Close()

	// always recompute from the offers table
	lineMovementService := linemovement.NewLineMovementService(
		repository.NewSportEventRepository(oddsDB),
		repository.NewEventOfferRepository(oddsDB),
		nil,
		config.Env.LineMovement,
	)

	var movements []entity.LineMovement
	if eventID != "" {
		movement, err := lineMovementService.GetLineMovement(ctx, eventID)
		util.ContinueOrFatal(err)
		movements = append(movements, *movement)
	} else {
		var err error
		movements, err = lineMovementService.GetAllLineMovements(ctx)
		util.ContinueOrFatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Bookmaker", "Market", "Choice", "Price", "Change", "American", "Point", "Prob"})
	table.SetAutoMergeCells(true)
	for _, movement := range movements {
		matchup := movement.AwayTeam + " @ " + movement.HomeTeam
		for _, change := range movement.Changes {
			table.Append([]string{
				matchup,
				change.Bookmaker,
				string(change.OfferType),
				change.Choice,
				change.PreviousPrice.String() + " -> " + change.CurrentPrice.String(),
				formatSigned(change.PriceChange),
				formatAmerican(change.PreviousPrice) + " -> " + formatAmerican(change.CurrentPrice),
				formatPoint(change.PreviousPoint) + " -> " + formatPoint(change.CurrentPoint),
				formatSigned(change.ProbabilityChange.Shift(2).Round(2)) + "%",
			})
		}
	}
	table.Render()
}

func formatAmerican(price decimal.Decimal) string {
	line, err := oddsmath.DecimalToAmerican(price)
	if err != nil {
		return "-"
	}
	if line > 0 {
		return "+" + strconv.FormatInt(line, 10)
	}

	return strconv.FormatInt(line, 10)
}

func formatPoint(value decimal.NullDecimal) string {
	if !value.Valid {
		return "-"
	}

	return value.Decimal.String()
}

func formatSigned(value decimal.Decimal) string {
	if value.IsPositive() {
		return "+" + value.String()
	}

	return value.String()
}
