package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/auth"
	"github.com/recordly/record-store/internal/cache"
	"github.com/recordly/record-store/internal/config"
	"github.com/recordly/record-store/internal/events"
	"github.com/recordly/record-store/internal/httpx"
	kafkax "github.com/recordly/record-store/internal/kafka"
	"github.com/recordly/record-store/internal/musicbrainz"
	"github.com/recordly/record-store/internal/orders"
	"github.com/recordly/record-store/internal/postgres"
	"github.com/recordly/record-store/internal/records"
	"github.com/recordly/record-store/internal/redisx"
	"github.com/recordly/record-store/internal/users"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Demo users
	userRepo := &users.Repo{DB: db}
	if err := userRepo.Seed(ctx); err != nil {
		logger.Fatal("seed users", zap.Error(err))
	}

	// Kafka producers, one per topic
	recProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicRecordEvents, 1024, logger)
	recProd.Start(ctx)
	ordProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderEvents, 1024, logger)
	ordProd.Start(ctx)

	// Services
	pages := cache.New(rdb, cfg.CacheTTL, logger)
	recordRepo := &records.Repo{DB: db}
	recSvc := &records.Service{
		Txer:     &postgres.Txer{Pool: db},
		Repo:     recordRepo,
		Metadata: musicbrainz.New(cfg.MusicBrainzURL, rdb, logger),
		Cache:    pages,
		Events:   recProd,
		Producer: cfg.ServiceName,
		Log:      logger,
	}
	ordSvc := &orders.Service{
		Txer:     &postgres.Txer{Pool: db},
		Ledger:   recordRepo,
		Repo:     &orders.Repo{DB: db},
		Cache:    pages,
		Events:   ordProd,
		Producer: cfg.ServiceName,
		Log:      logger,
	}

	// Router & handlers
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	router := httpx.NewRouter()
	(&httpx.AuthHandler{Users: userRepo, Tokens: tokens, Log: logger}).Register(router)
	(&httpx.RecordsHandler{Svc: recSvc, Log: logger}).Register(router, tokens)
	(&httpx.OrdersHandler{Svc: ordSvc, Log: logger}).Register(router, tokens)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// close inboxes -> flush & close writers, then wait for the drain
	recProd.Close()
	ordProd.Close()
	recProd.WaitClosed()
	ordProd.WaitClosed()
}
