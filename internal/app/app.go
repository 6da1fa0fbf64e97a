package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/orderflow/orderflow/config"
	kafkactrl "github.com/orderflow/orderflow/internal/controller/kafka"
	"github.com/orderflow/orderflow/internal/controller/restapi"
	outboxworker "github.com/orderflow/orderflow/internal/controller/worker/outbox"
	"github.com/orderflow/orderflow/internal/controller/worker/recovery"
	"github.com/orderflow/orderflow/internal/entity"
	infrakafka "github.com/orderflow/orderflow/internal/infrastructure/kafka"
	infraredis "github.com/orderflow/orderflow/internal/infrastructure/redis"
	"github.com/orderflow/orderflow/internal/repo/persistent"
	"github.com/orderflow/orderflow/internal/usecase/outbox"
	"github.com/orderflow/orderflow/internal/usecase/saga"
	"github.com/orderflow/orderflow/internal/usecase/wallet"
	"github.com/orderflow/orderflow/pkg/httpserver"
	"github.com/orderflow/orderflow/pkg/kafka/consumer"
	"github.com/orderflow/orderflow/pkg/kafka/producer"
	"github.com/orderflow/orderflow/pkg/logger"
	"github.com/orderflow/orderflow/pkg/postgres"
	"github.com/orderflow/orderflow/pkg/redisclient"
	"github.com/orderflow/orderflow/pkg/s3client"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	// s3
	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()
	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
	}

	// redis
	rc, err := redisclient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - redisclient.New: %w", err))
	}
	defer rc.Close()

	// Use-Case

	// saga use-case
	sagaUseCase := saga.New(
		persistent.NewUserRepo(pg),
		persistent.NewOrderRepo(pg),
		persistent.NewStockRepo(pg),
		persistent.NewWalletRepo(pg),
		persistent.NewOutboxRepo(pg),
		pg,
		l,
	)

	// wallet use-case
	walletUseCase := wallet.New(persistent.NewWalletRepo(pg), pg)

	// outbox use-case
	outboxUseCase := outbox.New(
		persistent.NewOutboxRepo(pg),
		persistent.NewArchiveRepo(s3c, cfg.S3.Bucket),
		l,
	)

	// Kafka Producer
	kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
	}

	eventProducer := infrakafka.NewEventProducer(kafkaProducer)

	// Outbox Dispatcher Worker
	dispatcherWorker := outboxworker.New(
		outboxUseCase,
		eventProducer,
		l,
		cfg.Dispatcher.PollInterval,
		cfg.Dispatcher.CleanupInterval,
		cfg.Dispatcher.Retention,
		cfg.Dispatcher.BatchSize,
		cfg.Dispatcher.MaxAttempts,
		cfg.Dispatcher.RetryDelay,
	)

	// Recovery Poller Worker
	pollerWorker := recovery.New(
		outboxUseCase,
		sagaUseCase,
		eventProducer,
		l,
		cfg.Poller.Interval,
		cfg.Poller.BatchSize,
		cfg.Poller.MaxAttempts,
		cfg.Poller.RetryDelay,
		cfg.Poller.MaxConcurrency,
	)

	// Kafka Consumer
	kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID,
		[]string{entity.TopicOrderCreated, entity.TopicDeductStock})
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
	}

	// Kafka as Controller
	workers := cfg.Consumer.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	kafkaController := kafkactrl.New(
		sagaUseCase,
		infrakafka.NewEventConsumer(kafkaConsumer),
		infraredis.NewEventLocker(rc, cfg.Redis.LockTTL),
		l,
		cfg.Consumer.CommitTimeout,
		cfg.Consumer.ProcessTimeout,
		workers,
	)

	// HTTP Server
	httpServer := httpserver.New(l, httpserver.Port(cfg.HTTP.Port), httpserver.Prefork(cfg.HTTP.UsePreforkMode))
	restapi.NewRouter(httpServer.App, cfg, sagaUseCase, walletUseCase, l)

	// Start Components
	err = dispatcherWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - dispatcherWorker.Start: %w", err))
	}
	err = pollerWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - pollerWorker.Start: %w", err))
	}
	err = kafkaController.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - kafkaController.Start: %w", err))
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	dShutdownCtx, dShutdownCancel := context.WithTimeout(ctx, cfg.Dispatcher.ShutdownTimeout)
	defer dShutdownCancel()
	err = dispatcherWorker.Shutdown(dShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - dispatcherWorker.Shutdown: %w", err))
	}

	pShutdownCtx, pShutdownCancel := context.WithTimeout(ctx, cfg.Poller.ShutdownTimeout)
	defer pShutdownCancel()
	err = pollerWorker.Shutdown(pShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - pollerWorker.Shutdown: %w", err))
	}

	kcShutdownCtx, kcShutdownCancel := context.WithTimeout(ctx, cfg.Consumer.ShutdownTimeout)
	defer kcShutdownCancel()
	err = kafkaController.Shutdown(kcShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - kafkaController.Shutdown: %w", err))
	}
}
