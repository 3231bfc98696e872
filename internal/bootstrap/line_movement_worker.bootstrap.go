package bootstrap

import (
	"context"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/krobus00/odds-tracker/internal/service/linemovement"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/spf13/cobra"
)

func StartLineMovementWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oddsDB := connectOddsDatabase(ctx)
	cacheRedis := connectCacheRedis(ctx)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	sportEventRepo := repository.NewSportEventRepository(oddsDB)
	eventOfferRepo := repository.NewEventOfferRepository(oddsDB)

	lineMovementService := linemovement.NewLineMovementService(
		sportEventRepo,
		eventOfferRepo,
		linemovement.NewRedisLineMovementCache(cacheRedis, config.Env.LineMovement.CacheTTL),
		config.Env.LineMovement,
	)
	lineMovementWorker := linemovement.NewLineMovementWorker(lineMovementService, js)

	publishers := make([]entity.Publisher, 0)
	publishers = append(publishers, lineMovementWorker)
	for _, v := range publishers {
		err = v.JetstreamEventInit(ctx)
		util.ContinueOrFatal(err)
	}

	subscribers := make([]entity.Subscriber, 0)
	subscribers = append(subscribers, lineMovementWorker)
	for _, v := range subscribers {
		err = v.JetstreamEventSubscribe(ctx)
		util.ContinueOrFatal(err)
	}

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"odds tracker database": func(ctx context.Context) error {
			cancel()
			return oddsDB.Close()
		},
		"redis cache": func(ctx context.Context) error {
			return cacheRedis.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
