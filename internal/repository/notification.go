package repository

import (
	"context"
	"errors"

	"github.com/hray3182/taskreminder/internal/database"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/jackc/pgx/v5"
)

// NotificationRepository remembers the last notification shown per
// (subscription, tag) so a platform can replace it and route clicks.
type NotificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) SaveNotification(ctx context.Context, n *models.PushedNotification) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO push_notification (subscription_id, tag, message_ref, task_id, delivery_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (subscription_id, tag) DO UPDATE SET
		   message_ref = EXCLUDED.message_ref,
		   task_id = EXCLUDED.task_id,
		   delivery_id = EXCLUDED.delivery_id,
		   created_at = EXCLUDED.created_at`,
		n.SubscriptionID, n.Tag, n.MessageRef, n.TaskID, n.DeliveryID, n.CreatedAt,
	)
	return err
}

func (r *NotificationRepository) GetNotification(ctx context.Context, subscriptionID, tag string) (*models.PushedNotification, error) {
	n := &models.PushedNotification{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT subscription_id, tag, message_ref, task_id, delivery_id, created_at
		 FROM push_notification WHERE subscription_id = $1 AND tag = $2`,
		subscriptionID, tag,
	).Scan(&n.SubscriptionID, &n.Tag, &n.MessageRef, &n.TaskID, &n.DeliveryID, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NotificationRepository) DeleteNotification(ctx context.Context, subscriptionID, tag string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM push_notification WHERE subscription_id = $1 AND tag = $2`,
		subscriptionID, tag,
	)
	return err
}
