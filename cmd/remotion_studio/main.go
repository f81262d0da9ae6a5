package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remotion_studio/internal/app"
	"remotion_studio/internal/config"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/mockapi"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "remotion_studio",
		Short:        "Video studio state engine and UI API",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	load := func() (*config.Config, *slog.Logger) {
		if os.Getenv("ENV") != envProd {
			// A missing .env is fine; the environment and defaults still apply.
			_ = godotenv.Load()
		}
		cfg := config.MustLoad(configPath)
		return cfg, setupLogger(cfg.Env)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the UI API against the configured backend",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log := load()
				return serve(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "mock-api",
			Short: "Run an in-memory backend with the same REST surface",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log := load()
				return serveMock(cfg, log)
			},
		},
	)

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}

	go func() {
		application.HTTPServer.MustRun()
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Stop(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", sl.Err(err))
		return err
	}

	log.Info("Gracefully stopped")

	return nil
}

func serveMock(cfg *config.Config, log *slog.Logger) error {
	srv := mockapi.New(log, mockapi.NewBackend(), mockapi.Options{
		FailCreates: cfg.MockAPI.FailCreates,
		ReadLag:     cfg.MockAPI.ReadLag,
		Prefix:      "/api",
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.MockAPI.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("mock api listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("mock api stopped", sl.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}

	return log
}
