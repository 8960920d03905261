package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hray3182/taskreminder/internal/config"
	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/httpapi"
	"github.com/hray3182/taskreminder/internal/pushworker"
	"github.com/hray3182/taskreminder/internal/scheduler"
	"github.com/hray3182/taskreminder/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder API, push dispatcher and Telegram bot",
		Long: `Run the reminder service.

The HTTP API is always served. Due reminders are pushed to Telegram when
TELEGRAM_TOKEN is set; otherwise pushes are kept in memory only.

Examples:
  DATABASE_URI=postgres://localhost/tasks reminderd serve
  DATABASE_URI=sqlite://reminders.db reminderd serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	svc := delivery.NewService(b.deliveries, b.tasks, b.prefs)
	svc.GraceWindow = cfg.GraceWindow

	handlers := pushworker.Handlers{
		Origin:   cfg.AppOrigin,
		TaskPath: cfg.TaskPath,
		Location: cfg.Location(),
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s error: %v", name, err)
				cancel()
			}
		}()
	}

	var worker *pushworker.Worker
	if cfg.TelegramToken != "" {
		api, err := telegram.NewAPI(cfg.TelegramToken, cfg.TelegramEndpoint)
		if err != nil {
			return err
		}
		platform := telegram.NewPlatform(api, b.notifications)
		worker = pushworker.NewWorker(handlers, platform)
		bot := telegram.NewBot(api, b.subscriptions, svc, worker, platform, cfg.Location())
		run("Bot", bot.Start)
	} else {
		log.Println("TELEGRAM_TOKEN not set, pushes are kept in memory")
		worker = pushworker.NewWorker(handlers, pushworker.NewMemoryPlatform())
	}
	run("Push worker", func(ctx context.Context) error {
		worker.Start(ctx)
		return nil
	})

	dispatcher := scheduler.New(b.deliveries, b.subscriptions, svc, worker, cfg.DispatchInterval)
	run("Scheduler", func(ctx context.Context) error {
		dispatcher.Start(ctx)
		return nil
	})

	api := httpapi.NewServer(svc, b.subscriptions, cfg.UpcomingWindow)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-sigCh:
		log.Println("Shutting down...")
	case err := <-errCh:
		serveErr = fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		serveErr = errors.New("a background component stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shut down HTTP server: %v", err)
	}

	cancel()
	wg.Wait()
	return serveErr
}
