package bootstrap

import (
	"context"
	"fmt"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	httpHandler "github.com/krobus00/odds-tracker/internal/handler/odds/http"
	wsHandler "github.com/krobus00/odds-tracker/internal/handler/odds/ws"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/repository"
	"github.com/krobus00/odds-tracker/internal/service/collector"
	"github.com/krobus00/odds-tracker/internal/service/linemovement"
	"github.com/krobus00/odds-tracker/internal/service/odds"
	"github.com/krobus00/odds-tracker/internal/service/team"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartOddsGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oddsDB := connectOddsDatabase(ctx)
	cacheRedis := connectCacheRedis(ctx)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	sportEventRepo := repository.NewSportEventRepository(oddsDB)
	eventOfferRepo := repository.NewEventOfferRepository(oddsDB)
	teamRepo := repository.NewTeamRepository(oddsDB)
	collectionRunRepo := repository.NewCollectionRunRepository(oddsDB)

	providers := initProviders()

	collectorService := collector.NewCollectorService(providers, sportEventRepo, collectionRunRepo, js, config.Env.Collector)
	oddsService := odds.NewOddsService(sportEventRepo, eventOfferRepo)
	lineMovementService := linemovement.NewLineMovementService(
		sportEventRepo,
		eventOfferRepo,
		linemovement.NewRedisLineMovementCache(cacheRedis, config.Env.LineMovement.CacheTTL),
		config.Env.LineMovement,
	)
	teamService := team.NewTeamService(teamRepo, sportEventRepo, eventOfferRepo, team.NewRedisTeamCache(cacheRedis, 0))

	publishers := make([]entity.Publisher, 0)
	publishers = append(publishers, collectorService)
	for _, v := range publishers {
		err = v.JetstreamEventInit(ctx)
		util.ContinueOrFatal(err)
	}

	err = teamService.Seed(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to seed teams, retrying on first request")
	}

	lineMoveHub := wsHandler.NewLineMoveHub()
	lineMoveSub, err := nc.Subscribe(constant.OddsLineMoveBroadcastSubject, lineMoveHub.HandleMsg)
	util.ContinueOrFatal(err)

	oddsHTTPHandler := httpHandler.NewOddsHTTPHandler(collectorService, oddsService, lineMovementService, teamService).
		WithHealthCheck(func(ctx context.Context) error {
			return infrastructure.PingPostgres(ctx, oddsDB)
		}).
		WithWebsocket(lineMoveHub.ServeWS)

	httpConfig := infrastructure.DefaultHTTPServerConfig()
	httpConfig.ShutdownTimeout = config.Env.GracefulShutdownTimeout
	httpServer := infrastructure.NewHTTPServerWithConfig(httpConfig, oddsHTTPHandler.Router())

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpConfig.Addr))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"odds tracker database": func(ctx context.Context) error {
			cancel()
			return oddsDB.Close()
		},
		"redis cache": func(ctx context.Context) error {
			return cacheRedis.Close()
		},
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"websocket hub": func(ctx context.Context) error {
			return lineMoveHub.Close()
		},
		"nats connection": func(ctx context.Context) error {
			_ = lineMoveSub.Unsubscribe()
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
