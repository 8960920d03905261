package repository

import (
	"context"
	"errors"

	"github.com/hray3182/taskreminder/internal/database"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `id, user_id, organization_id, person_id, channel, endpoint, created_at`

type SubscriptionRepository struct {
	db *database.DB
}

func NewSubscriptionRepository(db *database.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// SaveSubscription registers sub. An endpoint already registered on the same
// channel is reassigned to sub's user and keeps its id.
func (r *SubscriptionRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO push_subscription (id, user_id, organization_id, person_id, channel, endpoint, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (channel, endpoint) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   organization_id = EXCLUDED.organization_id,
		   person_id = EXCLUDED.person_id
		 RETURNING id, created_at`,
		sub.ID, sub.UserID, sub.OrganizationID, nullString(sub.PersonID), sub.Channel, sub.Endpoint, sub.CreatedAt,
	).Scan(&sub.ID, &sub.CreatedAt)
}

func (r *SubscriptionRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return getSubscription(r.db.Pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscription WHERE id = $1`, id))
}

func (r *SubscriptionRepository) FindSubscription(ctx context.Context, channel, endpoint string) (*models.Subscription, error) {
	return getSubscription(r.db.Pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscription WHERE channel = $1 AND endpoint = $2`,
		channel, endpoint))
}

func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context, uc models.UserContext) ([]*models.Subscription, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscription
		 WHERE user_id = $1 AND organization_id = $2
		 ORDER BY created_at ASC`,
		uc.UserID, uc.OrganizationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListSubscribedContexts returns each distinct user context with at least one
// subscription.
func (r *SubscriptionRepository) ListSubscribedContexts(ctx context.Context) ([]models.UserContext, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT user_id, organization_id, MAX(COALESCE(person_id, ''))
		 FROM push_subscription
		 GROUP BY user_id, organization_id
		 ORDER BY user_id, organization_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contexts []models.UserContext
	for rows.Next() {
		var uc models.UserContext
		if err := rows.Scan(&uc.UserID, &uc.OrganizationID, &uc.PersonID); err != nil {
			return nil, err
		}
		contexts = append(contexts, uc)
	}
	return contexts, rows.Err()
}

func getSubscription(row pgx.Row) (*models.Subscription, error) {
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var personID *string
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.OrganizationID, &personID,
		&sub.Channel, &sub.Endpoint, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if personID != nil {
		sub.PersonID = *personID
	}
	return sub, nil
}
