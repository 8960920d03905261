// Package delivery decides when users are reminded about task due dates and
// owns the lifecycle of the resulting Delivery records.
package delivery

import (
	"context"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
)

// Repository is the durable store of deliveries. Implementations must make
// InsertIfAbsent and Supersede atomic; the services never check-then-insert.
type Repository interface {
	// InsertIfAbsent stores d unless a delivery with the same
	// (task, user, remindAt) exists or a pending one exists for (task, user).
	// It reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, d *models.Delivery) (bool, error)

	// HasAny reports whether any delivery, in any status, exists for the pair.
	HasAny(ctx context.Context, taskID, userID string) (bool, error)

	// Get returns the delivery only if it belongs to uc. Nil, nil otherwise.
	Get(ctx context.Context, id string, uc models.UserContext) (*models.Delivery, error)

	// ListPending returns pending deliveries of uc with from <= remindAt <= to,
	// ordered by remindAt ascending. A nil from means no lower bound.
	ListPending(ctx context.Context, uc models.UserContext, from *time.Time, to time.Time) ([]*models.Delivery, error)

	// Transition moves a delivery from one status to another if it is still
	// in from. It reports whether the row changed.
	Transition(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error)

	// Supersede marks old superseded and inserts replacement in a single
	// transaction. Returns ErrStatusChanged if old is no longer pending and
	// ErrDuplicateDelivery if replacement collides with an existing key.
	Supersede(ctx context.Context, old, replacement *models.Delivery, at time.Time) error

	// ListUnpushed returns pending, due deliveries never handed to a push
	// channel, across all tenants.
	ListUnpushed(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error)

	MarkPushed(ctx context.Context, id string, at time.Time) error
}

// TaskFactProvider lists the tasks visible to a user that have a due date.
type TaskFactProvider interface {
	ListTasksWithDueDate(ctx context.Context, uc models.UserContext) ([]models.TaskFact, error)
}

// PreferenceStore reads a user's reminder lead time for a task. A nil result
// means no reminder is wanted.
type PreferenceStore interface {
	GetLeadMinutes(ctx context.Context, taskID, userID string) (*int, error)
}
