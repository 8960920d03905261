package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hray3182/taskreminder/internal/config"
	"github.com/hray3182/taskreminder/internal/database"
	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/pushworker"
	"github.com/hray3182/taskreminder/internal/repository"
	"github.com/hray3182/taskreminder/internal/store"
	"github.com/hray3182/taskreminder/internal/telegram"
)

// backend is every store the service needs, from one database.
type backend struct {
	deliveries    delivery.Repository
	tasks         delivery.TaskFactProvider
	prefs         delivery.PreferenceStore
	subscriptions pushworker.SubscriptionStore
	notifications telegram.NotificationStore
	close         func()
}

// openBackend connects to the configured database and brings its schema up
// to date.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg.DatabaseURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("Connected to database")

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Println("Database migrations completed")

		tasks := repository.NewTaskFactRepository(db)
		return &backend{
			deliveries:    repository.NewDeliveryRepository(db),
			tasks:         tasks,
			prefs:         tasks,
			subscriptions: repository.NewSubscriptionRepository(db),
			notifications: repository.NewNotificationRepository(db),
			close:         db.Close,
		}, nil
	}

	s, err := store.NewSQLiteStore(cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	log.Printf("Opened sqlite store at %s", cfg.SQLitePath())

	return &backend{
		deliveries:    s,
		tasks:         s,
		prefs:         s,
		subscriptions: s,
		notifications: s,
		close: func() {
			if err := s.Close(); err != nil {
				log.Printf("Failed to close sqlite store: %v", err)
			}
		},
	}, nil
}
