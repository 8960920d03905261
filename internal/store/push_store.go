package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hray3182/taskreminder/internal/models"
)

type subscriptionRow struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	OrganizationID string `db:"organization_id"`
	PersonID       string `db:"person_id"`
	Channel        string `db:"channel"`
	Endpoint       string `db:"endpoint"`
	CreatedAt      int64  `db:"created_at"`
}

func (r subscriptionRow) toModel() *models.Subscription {
	return &models.Subscription{
		ID:             r.ID,
		UserID:         r.UserID,
		OrganizationID: r.OrganizationID,
		PersonID:       r.PersonID,
		Channel:        r.Channel,
		Endpoint:       r.Endpoint,
		CreatedAt:      fromMillis(r.CreatedAt),
	}
}

const selectSubscription = `SELECT id, user_id, organization_id, person_id, channel, endpoint, created_at
	FROM push_subscription`

// SaveSubscription registers sub. An endpoint already registered on the same
// channel is reassigned to sub's user and keeps its id.
func (s *SQLiteStore) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscription (id, user_id, organization_id, person_id, channel, endpoint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel, endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			organization_id = excluded.organization_id,
			person_id = excluded.person_id`,
		sub.ID, sub.UserID, sub.OrganizationID, sub.PersonID, sub.Channel, sub.Endpoint, toMillis(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving subscription: %w", err)
	}

	stored, err := s.FindSubscription(ctx, sub.Channel, sub.Endpoint)
	if err != nil {
		return err
	}
	if stored != nil {
		sub.ID = stored.ID
		sub.CreatedAt = stored.CreatedAt
	}
	return nil
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return s.getSubscription(ctx, selectSubscription+` WHERE id = ?`, id)
}

func (s *SQLiteStore) FindSubscription(ctx context.Context, channel, endpoint string) (*models.Subscription, error) {
	return s.getSubscription(ctx, selectSubscription+` WHERE channel = ? AND endpoint = ?`, channel, endpoint)
}

func (s *SQLiteStore) getSubscription(ctx context.Context, query string, args ...interface{}) (*models.Subscription, error) {
	var row subscriptionRow
	err := s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) ListSubscriptions(ctx context.Context, uc models.UserContext) ([]*models.Subscription, error) {
	var rows []subscriptionRow
	err := s.db.SelectContext(ctx, &rows,
		selectSubscription+` WHERE user_id = ? AND organization_id = ? ORDER BY created_at ASC`,
		uc.UserID, uc.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	subs := make([]*models.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toModel())
	}
	return subs, nil
}

func (s *SQLiteStore) ListSubscribedContexts(ctx context.Context) ([]models.UserContext, error) {
	var rows []struct {
		UserID         string `db:"user_id"`
		OrganizationID string `db:"organization_id"`
		PersonID       string `db:"person_id"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, organization_id, MAX(person_id) AS person_id
		FROM push_subscription
		GROUP BY user_id, organization_id
		ORDER BY user_id, organization_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing subscribed contexts: %w", err)
	}

	contexts := make([]models.UserContext, 0, len(rows))
	for _, row := range rows {
		contexts = append(contexts, models.UserContext{
			UserID:         row.UserID,
			OrganizationID: row.OrganizationID,
			PersonID:       row.PersonID,
		})
	}
	return contexts, nil
}

type notificationRow struct {
	SubscriptionID string `db:"subscription_id"`
	Tag            string `db:"tag"`
	MessageRef     string `db:"message_ref"`
	TaskID         string `db:"task_id"`
	DeliveryID     string `db:"delivery_id"`
	CreatedAt      int64  `db:"created_at"`
}

func (s *SQLiteStore) SaveNotification(ctx context.Context, n *models.PushedNotification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_notification (subscription_id, tag, message_ref, task_id, delivery_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_id, tag) DO UPDATE SET
			message_ref = excluded.message_ref,
			task_id = excluded.task_id,
			delivery_id = excluded.delivery_id,
			created_at = excluded.created_at`,
		n.SubscriptionID, n.Tag, n.MessageRef, n.TaskID, n.DeliveryID, toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving notification %s: %w", n.Tag, err)
	}
	return nil
}

func (s *SQLiteStore) GetNotification(ctx context.Context, subscriptionID, tag string) (*models.PushedNotification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row, `
		SELECT subscription_id, tag, message_ref, task_id, delivery_id, created_at
		FROM push_notification WHERE subscription_id = ? AND tag = ?`,
		subscriptionID, tag,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", tag, err)
	}
	return &models.PushedNotification{
		SubscriptionID: row.SubscriptionID,
		Tag:            row.Tag,
		MessageRef:     row.MessageRef,
		TaskID:         row.TaskID,
		DeliveryID:     row.DeliveryID,
		CreatedAt:      fromMillis(row.CreatedAt),
	}, nil
}

func (s *SQLiteStore) DeleteNotification(ctx context.Context, subscriptionID, tag string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_notification WHERE subscription_id = ? AND tag = ?`,
		subscriptionID, tag,
	)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", tag, err)
	}
	return nil
}
