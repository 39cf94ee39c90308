package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recovr/internal/config"
	"recovr/internal/infra"
	"recovr/internal/kvstore"
	"recovr/internal/repository"
	"recovr/internal/router"
	"recovr/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger — dev: pretty, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis carries the job queues. Only the memory store may run without it.
	var rdb *redis.Client
	if client, err := infra.NewRedis(cfg.RedisURL); err == nil {
		rdb = client
		defer rdb.Close()
	} else if cfg.StoreDriver == "memory" {
		log.Warn().Err(err).Msg("redis unavailable; receipts and voice notes are disabled")
	} else {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	store, err := infra.OpenStore(ctx, cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}

	breaker := infra.NewCircuitBreaker(infra.DefaultAIBreakerConfig())
	genaiClient, err := infra.NewGenAIClient(ctx, cfg, breaker)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create genai client")
	}

	deps := router.Deps{Store: store, Redis: rdb, Breaker: breaker}
	if genaiClient != nil {
		deps.AI = genaiClient
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; assistant endpoints answer 503")
	}

	// Start goroutine worker pool for async tasks (receipt PDF, email,
	// voice, video). Worker handlers are wired here (composition root) so
	// the pool has full access to all infrastructure dependencies.
	var pool *worker.Pool
	var retryDone <-chan struct{}
	if rdb != nil {
		deps.Dispatcher = worker.NewDispatcher(rdb)
		handlers, err := buildWorkerHandlers(cfg, store, deps.Dispatcher, genaiClient)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build worker handlers")
		}
		pool = worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)
		retryDone = worker.StartRetryCron(ctx, rdb)
	}

	r := router.New(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreDriver).Msgf("RECOVR backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if pool != nil {
		pool.Wait()
		<-retryDone
	}
	log.Info().Msg("server exited")
}

// buildWorkerHandlers wires job processors to whatever integrations are
// configured. Missing ones leave their handler nil and those jobs are dropped.
func buildWorkerHandlers(
	cfg *config.Config,
	store kvstore.Store,
	dispatcher *worker.Dispatcher,
	ai *infra.GenAIClient,
) (*worker.Handlers, error) {
	uploader, err := infra.NewReceiptUploader(cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		return nil, err
	}
	var receiptStore worker.ReceiptStore
	if uploader != nil {
		receiptStore = uploader
	}

	handlers := &worker.Handlers{}
	// Receipts only queue emails when someone can send them.
	emailDispatcher := dispatcher
	if mailer := infra.NewMailer(cfg); mailer != nil {
		handlers.Email = worker.NewEmailWorker(mailer)
	} else {
		emailDispatcher = nil
		log.Warn().Msg("SMTP_HOST not set; receipt emails are disabled")
	}
	handlers.Receipt = worker.NewReceiptWorker(
		repository.NewPaymentRepository(store),
		repository.NewClientRepository(store),
		repository.NewUserRepository(store),
		receiptStore,
		emailDispatcher,
		cfg.ReceiptStoragePath,
		cfg.CompanyName,
	)
	if ai != nil {
		handlers.Voice = worker.NewVoiceWorker(ai, cfg.AudioStoragePath)
		handlers.Video = worker.NewVideoWorker(ai, cfg.VideoStoragePath)
	}
	return handlers, nil
}
