package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/wager-platform-poc/internal/shared/cache"
	"github.com/radieske/wager-platform-poc/internal/shared/config"
	"github.com/radieske/wager-platform-poc/internal/shared/db"
	"github.com/radieske/wager-platform-poc/internal/shared/kafka"
	"github.com/radieske/wager-platform-poc/internal/shared/logger"
	"github.com/radieske/wager-platform-poc/internal/shared/metrics"
	"github.com/radieske/wager-platform-poc/internal/wager-service/engine"
	whttp "github.com/radieske/wager-platform-poc/internal/wager-service/http"
	"github.com/radieske/wager-platform-poc/internal/wager-service/lock"
	"github.com/radieske/wager-platform-poc/internal/wager-service/producer"
	"github.com/radieske/wager-platform-poc/internal/wager-service/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("wager-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres (ledger)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Nós Redis independentes do quorum de lock
	lockClients, err := cache.ConnectRedisQuorum(strings.Split(cfg.RedisLockAddrs, ","))
	if err != nil {
		log.Fatal("redis quorum connect", zap.Error(err))
	}

	// Kafka writer (topic wager_settled)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettled)
	defer writer.Close()

	// deps
	store := repo.NewPostgres(pg)
	locks := lock.NewClient(lockClients, lock.Config{
		Retries:     cfg.LockRetries,
		RetryDelay:  cfg.LockRetryDelay,
		RetryJitter: cfg.LockRetryJitter,
	})
	eng := engine.New(log, locks, store, engine.NewOutcomeEvaluator(engine.SystemRand()),
		engine.WithLockTTL(cfg.LockTTL),
		engine.WithTxTimeout(cfg.TxTimeout),
	)
	publ := producer.NewKafkaPublisher(writer, cfg.TopicWagerSettled)

	// HTTP público
	api := whttp.NewServer(log, eng, store, publ)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		for _, c := range lockClients {
			if err := c.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	})

	log.Info("wager-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
