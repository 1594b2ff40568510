package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/audit"
	"github.com/recordly/record-store/internal/config"
	"github.com/recordly/record-store/internal/events"
	kafkax "github.com/recordly/record-store/internal/kafka"
	"github.com/recordly/record-store/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		RDB:  rdb,
		Log:  logger,
		Name: "auditor",
	}

	group := getenv("AUDITOR_GROUP", "order-auditor")
	workers := mustAtoi(os.Getenv("AUDITOR_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderEvents, workers, logger)

	go func() {
		logger.Info("auditor consumer started",
			zap.String("group", group),
			zap.String("topic", events.TopicOrderEvents),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			logger.Warn("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
