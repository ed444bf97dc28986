package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-iq/internal/api/http"
	auth "github.com/mind-engage/mindengage-iq/internal/auth/middleware"
	"github.com/mind-engage/mindengage-iq/internal/config"
	"github.com/mind-engage/mindengage-iq/internal/db"
	"github.com/mind-engage/mindengage-iq/internal/feedback"
	"github.com/mind-engage/mindengage-iq/internal/quiz"
	"github.com/mind-engage/mindengage-iq/internal/storage"
	syncx "github.com/mind-engage/mindengage-iq/internal/sync"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "error", err)
		os.Exit(1)
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh)
	svc := quiz.NewService(
		quiz.NewSQLStore(dbh, cfg.DBDriver),
		quiz.WithLogger(logger),
		quiz.WithEvents(events, cfg.SiteID),
	)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		logger.Error("blob store", "error", err)
		os.Exit(1)
	}

	var commentator feedback.Commentator
	if cfg.LLMURL != "" {
		commentator = feedback.NewLLMCommentator(cfg.LLMURL, cfg.LLMModel, cfg.LLMTimeout)
	}

	r := api.NewRouter(api.Deps{
		Quiz:           svc,
		Auth:           auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Users:          auth.NewUserStore(dbh),
		Blobs:          bs,
		Events:         events,
		Commentary:     feedback.NewSafe(commentator, logger, cfg.LLMTimeout),
		Ready:          dbh.PingContext,
		EnableRegister: cfg.EnableRegister,
		CORSOrigins:    cfg.CORSOrigins(),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver,
		"commentary", cfg.LLMURL != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
