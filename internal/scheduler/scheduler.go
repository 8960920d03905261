// Package scheduler pushes due reminders to subscribed users on a timer, so
// reminders arrive even when no client is polling.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
	"github.com/hray3182/taskreminder/internal/pushworker"
)

const (
	DefaultCheckInterval = time.Minute
	defaultBatchSize     = 100
)

// DeliveryStore is the dispatcher's view of the delivery repository.
type DeliveryStore interface {
	ListUnpushed(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error)
	MarkPushed(ctx context.Context, id string, at time.Time) error
}

// SubscriptionLister finds where a user's pushes go.
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context, uc models.UserContext) ([]*models.Subscription, error)
	ListSubscribedContexts(ctx context.Context) ([]models.UserContext, error)
}

// Ensurer materializes deliveries for a user; delivery.Scheduler in practice.
type Ensurer interface {
	EnsureDeliveryRecordsForUpcoming(ctx context.Context, uc models.UserContext)
}

// Pusher hands a payload to a subscription's push channel.
type Pusher interface {
	Push(ctx context.Context, sub *models.Subscription, payload []byte) error
}

type Scheduler struct {
	deliveries    DeliveryStore
	subs          SubscriptionLister
	ensurer       Ensurer
	pusher        Pusher
	checkInterval time.Duration
	startDelay    time.Duration
	batchSize     int
	notifyCh      chan struct{}

	Now func() time.Time
}

func New(deliveries DeliveryStore, subs SubscriptionLister, ensurer Ensurer, pusher Pusher, checkInterval time.Duration) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	return &Scheduler{
		deliveries:    deliveries,
		subs:          subs,
		ensurer:       ensurer,
		pusher:        pusher,
		checkInterval: checkInterval,
		startDelay:    2 * time.Second,
		batchSize:     defaultBatchSize,
		notifyCh:      make(chan struct{}, 1),
		Now:           time.Now,
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Println("Scheduler started")
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Let the HTTP server and push worker come up before the first check
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startDelay):
	}

	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.notifyCh:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	s.ensureSubscribed(ctx)
	s.pushDue(ctx)
}

// ensureSubscribed runs the scheduling pass for every subscribed user, the
// same pass a polling client triggers.
func (s *Scheduler) ensureSubscribed(ctx context.Context) {
	contexts, err := s.subs.ListSubscribedContexts(ctx)
	if err != nil {
		log.Printf("Failed to list subscribed users: %v", err)
		return
	}
	for _, uc := range contexts {
		if ctx.Err() != nil {
			return
		}
		s.ensurer.EnsureDeliveryRecordsForUpcoming(ctx, uc)
	}
}

func (s *Scheduler) pushDue(ctx context.Context) {
	now := s.Now()
	deliveries, err := s.deliveries.ListUnpushed(ctx, now, s.batchSize)
	if err != nil {
		log.Printf("Failed to get unpushed reminders: %v", err)
		return
	}

	for _, d := range deliveries {
		if ctx.Err() != nil {
			return
		}
		s.pushDelivery(ctx, d, now)
	}

	if len(deliveries) == s.batchSize {
		s.Notify()
	}
}

// pushDelivery sends d to every subscription of its owner and marks it
// pushed, even when there is nobody to push to.
func (s *Scheduler) pushDelivery(ctx context.Context, d *models.Delivery, now time.Time) {
	payload, err := pushworker.NewPayload(d).Encode()
	if err != nil {
		log.Printf("Failed to encode reminder %s: %v", d.ID, err)
		return
	}

	subs, err := s.subs.ListSubscriptions(ctx, d.Context())
	if err != nil {
		log.Printf("Failed to get subscriptions for user %s: %v", d.UserID, err)
		return
	}

	for _, sub := range subs {
		if err := s.pusher.Push(ctx, sub, payload); err != nil {
			log.Printf("Failed to push reminder %s to subscription %s: %v", d.ID, sub.ID, err)
		}
	}

	if err := s.deliveries.MarkPushed(ctx, d.ID, now); err != nil {
		log.Printf("Failed to mark reminder %s pushed: %v", d.ID, err)
		return
	}
	log.Printf("Pushed reminder %s for task %s to %d subscription(s)", d.ID, d.TaskID, len(subs))
}
