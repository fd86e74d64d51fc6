package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daybook/internal/auth"
	"daybook/internal/config"
	"daybook/internal/events"
	"daybook/internal/holidays"
	"daybook/internal/metrics"
	"daybook/internal/server"
	"daybook/internal/storage"
	"daybook/internal/storage/mongo"
	"daybook/internal/storage/sqlite"
)

func newServeCommand() *cobra.Command {
	var addr, dbPath, staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("static") {
				cfg.StaticDir = staticDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides DAYBOOK_ADDR)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to sqlite database file (overrides DAYBOOK_DB_PATH)")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory with built frontend (overrides DAYBOOK_STATIC_DIR)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}

	prom := metrics.NewPromMetrics()

	provider, err := holidayProvider(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := eventPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	srv := server.New(store, logger, server.Options{
		Auth:          auth.NewService(store, tokens),
		Holidays:      holidays.NewCache(cfg.HolidaySource, provider, cfg.HolidayCacheTTL, prom),
		Publisher:     publisher,
		Metrics:       prom,
		StaticDir:     cfg.StaticDir,
		SecureCookies: cfg.SecureCookies,
		CORSOrigin:    cfg.CORSOrigin,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			slog.String("addr", httpServer.Addr),
			slog.String("store", cfg.Store),
			slog.String("holidays", cfg.HolidaySource))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := mongo.Open(connectCtx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("unable to open mongo store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.Open(cfg.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("unable to open database: %w", err)
		}
		return store, nil
	}
}

func holidayProvider(ctx context.Context, cfg *config.Config) (holidays.Provider, error) {
	if cfg.HolidaySource == config.HolidayGoogle {
		g, err := holidays.NewGoogleProvider(ctx, cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("google calendar: %w", err)
		}
		return g, nil
	}
	return holidays.NewNagerClient(cfg.NagerBaseURL, &http.Client{Timeout: 10 * time.Second}), nil
}

func eventPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}, nil
	}
	client, err := events.NewKafkaClient(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return events.NewKafkaPublisher(client, cfg.KafkaTopic), nil
}
