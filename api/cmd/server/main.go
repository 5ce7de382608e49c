package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"meetscribe/api/audio"
	"meetscribe/api/config"
	"meetscribe/api/database"
	"meetscribe/api/handlers"
	"meetscribe/middleware"
	"meetscribe/api/repository"
	"meetscribe/api/transcription"
	"meetscribe/api/ws"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("API service starting", zap.String("port", cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database")

	repo := repository.NewPostgresRepo(db)
	hub := ws.NewHub(cfg.MaxConnectionsPerMeeting, logger)

	chunks, err := audio.NewChunkStore(cfg.SharedAudioPath, logger)
	if err != nil {
		logger.Fatal("Failed to prepare audio storage",
			zap.String("path", cfg.SharedAudioPath),
			zap.Error(err),
		)
	}

	jobs := transcription.NewClient(cfg.TranscriptionServiceURL,
		cfg.PublicURL+"/webhook/transcription-completed", logger)
	if !jobs.Healthy(ctx) {
		// Chunks still get stored; jobs queue once the service comes up.
		logger.Warn("Transcription service unreachable at startup",
			zap.String("url", cfg.TranscriptionServiceURL))
	}

	mux := http.NewServeMux()
	handlers.NewMeetingHandler(repo, logger).Register(mux)
	handlers.NewWebhookHandler(repo, hub, logger).Register(mux)
	handlers.NewStreamHandler(repo, hub, chunks, jobs, logger).Register(mux)

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
}
