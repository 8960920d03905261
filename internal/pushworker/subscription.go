package pushworker

import (
	"context"

	"github.com/hray3182/taskreminder/internal/models"
)

// SubscriptionStore persists the endpoints pushes are sent to.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	FindSubscription(ctx context.Context, channel, endpoint string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, uc models.UserContext) ([]*models.Subscription, error)
	ListSubscribedContexts(ctx context.Context) ([]models.UserContext, error)
}
