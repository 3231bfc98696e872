package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/service/provider"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type operation func(ctx context.Context) error

// gracefulShutdown waits for termination syscalls and doing clean up operations after received it.
func gracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]operation) <-chan struct{} {
	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)

		// add any other syscalls that you want to be notified with
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		<-s

		logrus.Info("shutting down")

		// set timeout for the ops to be done to prevent system hang
		timeoutFunc := time.AfterFunc(timeout, func() {
			logrus.Error(fmt.Sprintf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds()))
			os.Exit(0)
		})

		defer timeoutFunc.Stop()

		var wg sync.WaitGroup

		// Do the operations asynchronously to save time
		for key, op := range ops {
			wg.Add(1)
			innerOp := op
			innerKey := key
			go func() {
				defer wg.Done()

				logrus.Info(fmt.Sprintf("cleaning up: %s", innerKey))
				if err := innerOp(ctx); err != nil {
					logrus.Error(fmt.Sprintf("%s: clean up failed: %s", innerKey, err.Error()))
					return
				}

				logrus.Info(fmt.Sprintf("%s was shutdown gracefully", innerKey))
			}()
		}

		wg.Wait()

		close(wait)
	}()

	return wait
}

func connectOddsDatabase(ctx context.Context) *sqlx.DB {
	dbConfig := config.Env.Database[constant.OddsDatabaseName]

	db, err := infrastructure.NewPostgresConnection(ctx, dbConfig)
	util.ContinueOrFatalf(err, "connect database %s", constant.OddsDatabaseName)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbConfig.PingInterval)

	return db
}

func connectCacheRedis(ctx context.Context) *redis.Client {
	client, err := infrastructure.NewRedisClient(ctx, config.Env.Redis[constant.CacheRedisName])
	util.ContinueOrFatalf(err, "connect redis %s", constant.CacheRedisName)

	return client
}

// initProviders registers every odds provider. TheOddsAPI is registered even
// without an api key and fails at fetch time.
func initProviders() map[entity.ProviderKey]entity.Provider {
	provider.InitKambiProvider(config.Env.Providers.Kambi)
	provider.InitTheOddsAPIProvider(config.Env.Providers.TheOddsAPI)

	if config.Env.Providers.TheOddsAPI.APIKey == "" {
		logrus.Warn("theoddsapi api key is not set, theoddsapi collections will fail")
	}

	return provider.GlobalProviderRegistry
}
