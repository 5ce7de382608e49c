package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meetscribe/middleware"
	"meetscribe/worker/config"
	"meetscribe/worker/handlers"
	"meetscribe/worker/jobs"
	"meetscribe/worker/pool"
	"meetscribe/worker/transcribe"
	"meetscribe/worker/webhook"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("Transcription service starting",
		zap.String("port", cfg.Port),
		zap.Int("workers", cfg.WorkerCount),
	)

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set - transcription will fail")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  5 * time.Second,
	})
	defer client.Close()

	store := jobs.NewStore(client, logger)

	// An unreachable job store at startup is fatal; transient errors later
	// are absorbed per-operation.
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transcriber := transcribe.NewWhisperClient(cfg.OpenAIAPIKey, cfg.WhisperModel, logger)
	notifier := webhook.NewNotifier(logger)

	workers := pool.New(store, transcriber, notifier, cfg.SharedAudioPath, cfg.WorkerCount, logger)
	workers.Start(ctx)

	mux := http.NewServeMux()
	handlers.NewTranscribeHandler(store, cfg.SharedAudioPath, logger).Register(mux)

	handler := middleware.RequestID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	workers.Wait()
}
