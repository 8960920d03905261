package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
)

const DefaultUpcomingWindow = 24 * time.Hour

// QueryService is the read side. Every read runs a scheduling pass first so
// that client polling alone keeps deliveries fresh.
type QueryService struct {
	repo      Repository
	scheduler *Scheduler
	Now       func() time.Time
}

func NewQueryService(repo Repository, scheduler *Scheduler) *QueryService {
	return &QueryService{
		repo:      repo,
		scheduler: scheduler,
		Now:       time.Now,
	}
}

// DueNow returns pending deliveries whose remind time has passed, oldest first.
func (q *QueryService) DueNow(ctx context.Context, uc models.UserContext) ([]*models.Delivery, error) {
	if err := uc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	q.scheduler.EnsureDeliveryRecordsForUpcoming(ctx, uc)

	return q.repo.ListPending(ctx, uc, nil, q.Now())
}

// Upcoming returns pending deliveries with remind time in [now, now+window].
func (q *QueryService) Upcoming(ctx context.Context, uc models.UserContext, window time.Duration) ([]*models.Delivery, error) {
	if err := uc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrInvalidArgument)
	}
	q.scheduler.EnsureDeliveryRecordsForUpcoming(ctx, uc)

	now := q.Now()
	return q.repo.ListPending(ctx, uc, &now, now.Add(window))
}
