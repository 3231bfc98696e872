package bootstrap

import (
	"context"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/krobus00/odds-tracker/internal/service/collector"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/spf13/cobra"
)

func StartCollectorWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oddsDB := connectOddsDatabase(ctx)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	sportEventRepo := repository.NewSportEventRepository(oddsDB)
	collectionRunRepo := repository.NewCollectionRunRepository(oddsDB)

	providers := initProviders()

	collectorConfig := config.Env.Collector
	// the worker always persists, otherwise nothing downstream sees the run
	collectorConfig.Store = true
	collectorService := collector.NewCollectorService(providers, sportEventRepo, collectionRunRepo, js, collectorConfig)

	publishers := make([]entity.Publisher, 0)
	publishers = append(publishers, collectorService)
	for _, v := range publishers {
		err = v.JetstreamEventInit(ctx)
		util.ContinueOrFatal(err)
	}

	go collectorService.Run(ctx)

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"odds tracker database": func(ctx context.Context) error {
			cancel()
			return oddsDB.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
