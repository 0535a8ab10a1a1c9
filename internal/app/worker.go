package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaveledger/internal/employee"
	"leaveledger/internal/ledger"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/messaging/kafka"
	"leaveledger/internal/messaging/kafka/producer"
	"leaveledger/internal/scheduler"
	"leaveledger/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker hosts the two background loops: the outbox relay and the daily
// credit-cycle sweep.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	employeeRepo := employee.NewRepository(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB, sqlDB)
	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	readCache := ledger.NewBalanceReadCache(redisClient)
	finder := ledger.NewEntryFinder(employeeRepo, leaveTypeRepo)
	ledgerService := ledger.NewService(sqlDB, ledgerRepo, outboxRepo, finder, readCache)
	schedulerService := scheduler.NewService(employeeRepo, leaveTypeRepo, ledgerService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	go runDailyCreditCycle(ctx, schedulerService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}

// runDailyCreditCycle fires one sweep shortly after every UTC midnight. The
// sweep itself is duplicate-safe, so an extra run after a restart costs
// nothing.
func runDailyCreditCycle(ctx context.Context, svc scheduler.Service, logger *zap.Logger) {
	log := logger.Named("credit_cycle")

	frequencies := []string{
		leavetype.FrequencyMonthly,
		leavetype.FrequencyQuarterly,
		leavetype.FrequencyHalfYearly,
		leavetype.FrequencyYearly,
	}

	// Catch up immediately on start, then once per day.
	run := func() {
		if _, err := svc.RunCreditCycle(ctx, time.Time{}, frequencies); err != nil {
			log.Error("scheduled credit cycle failed", zap.Error(err))
		}
	}
	run()

	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 5, 0, 0, time.UTC)

		select {
		case <-ctx.Done():
			log.Info("credit cycle loop stopped")
			return
		case <-time.After(next.Sub(now)):
			run()
		}
	}
}
