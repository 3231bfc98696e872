package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/krobus00/odds-tracker/internal/service/collector"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartCollect(cmd *cobra.Command, args []string) {
	providerKey, _ := cmd.Flags().GetString("provider")
	league, _ := cmd.Flags().GetString("league")
	store, _ := cmd.Flags().GetBool("store")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := initProviders()

	var collectorService *collector.CollectorService
	if store {
		oddsDB := connectOddsDatabase(ctx)
		defer oddsDB.Close()

		var js nats.JetStreamContext
		if strings.TrimSpace(config.Env.NatsJetstream.URL) != "" {
			var nc *nats.Conn
			var err error
			nc, js, err = infrastructure.NewJetstream()
			util.ContinueOrFatal(err)
			defer func() {
				_ = infrastructure.CloseJetstream(nc)
			}()
		}

		collectorService = collector.NewCollectorService(
			providers,
			repository.NewSportEventRepository(oddsDB),
			repository.NewCollectionRunRepository(oddsDB),
			js,
			config.Env.Collector,
		)
		util.ContinueOrFatal(collectorService.JetstreamEventInit(ctx))
	} else {
		collectorService = collector.NewCollectorService(providers, nil, nil, nil, config.Env.Collector)
	}

	result, err := collectorService.Collect(ctx, entity.ProviderKey(providerKey), league, store)
	util.ContinueOrFatal(err)

	logrus.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"provider": result.Provider,
		"league":   result.League,
		"events":   len(result.Events),
		"offers":   result.Offers,
		"failed":   result.Failed,
		"stored":   result.Stored,
	}).Info("collection finished")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Sport", "Commence", "Home", "Away", "Offers"})
	for _, data := range result.Events {
		table.Append([]string{
			data.Event.ID,
			data.Event.SportKey,
			data.Event.CommenceTime.Format("2006-01-02 15:04"),
			data.Event.HomeTeam,
			data.Event.AwayTeam,
			strconv.Itoa(len(data.Offers)),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Total", fmt.Sprintf("%d", result.Offers)})
	table.Render()
}
