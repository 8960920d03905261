package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/taskreminder/internal/models"
)

// StateMachine applies the pending -> {acknowledged, dismissed, superseded}
// transitions. All three target states are terminal.
type StateMachine struct {
	repo Repository
	Now  func() time.Time
}

func NewStateMachine(repo Repository) *StateMachine {
	return &StateMachine{repo: repo, Now: time.Now}
}

// Acknowledge marks a pending delivery acknowledged. Acknowledging twice is
// not an error.
func (m *StateMachine) Acknowledge(ctx context.Context, deliveryID string, uc models.UserContext) error {
	return m.resolve(ctx, deliveryID, uc, models.DeliveryStatusAcknowledged)
}

// Dismiss marks a pending delivery dismissed. Dismissing twice is not an error.
func (m *StateMachine) Dismiss(ctx context.Context, deliveryID string, uc models.UserContext) error {
	return m.resolve(ctx, deliveryID, uc, models.DeliveryStatusDismissed)
}

func (m *StateMachine) resolve(ctx context.Context, deliveryID string, uc models.UserContext, target models.DeliveryStatus) error {
	if err := validateIdentity(deliveryID, uc); err != nil {
		return err
	}

	// A lost compare-and-set gets one re-read; whatever the row says then is final.
	for attempt := 0; attempt < 2; attempt++ {
		d, err := m.load(ctx, deliveryID, uc)
		if err != nil {
			return err
		}
		switch d.Status {
		case target:
			return nil
		case models.DeliveryStatusPending:
		default:
			return fmt.Errorf("%w: delivery is %s", ErrInvalidState, d.Status)
		}

		changed, err := m.repo.Transition(ctx, d.ID, models.DeliveryStatusPending, target, m.Now())
		if err != nil {
			return fmt.Errorf("failed to update delivery %s: %w", d.ID, err)
		}
		if changed {
			return nil
		}
	}
	return fmt.Errorf("%w: delivery changed while updating", ErrInvalidState)
}

// Snooze supersedes a pending delivery with a new one snoozeMinutes from now,
// never later than the task's due date. It returns the new delivery.
// Snoozing fails when the resulting time equals the current one, which
// happens once a reminder has been capped at the due date.
func (m *StateMachine) Snooze(ctx context.Context, deliveryID string, uc models.UserContext, snoozeMinutes int) (*models.Delivery, error) {
	if snoozeMinutes <= 0 {
		return nil, fmt.Errorf("%w: snooze minutes must be positive", ErrInvalidArgument)
	}
	if err := validateIdentity(deliveryID, uc); err != nil {
		return nil, err
	}

	d, err := m.load(ctx, deliveryID, uc)
	if err != nil {
		return nil, err
	}
	if !d.IsPending() {
		return nil, fmt.Errorf("%w: cannot snooze a %s delivery", ErrInvalidState, d.Status)
	}

	now := m.Now()
	remindAt := now.Add(models.Minutes(snoozeMinutes))
	if remindAt.After(d.TaskDueAt) {
		remindAt = d.TaskDueAt
	}
	remindAt = remindAt.Truncate(time.Millisecond)
	// The time may move earlier than the current one when snoozing an
	// upcoming reminder. Only an unchanged time is refused.
	if remindAt.Equal(d.RemindAt) {
		return nil, fmt.Errorf("%w: reminder is already set for %s", ErrInvalidState, remindAt.Format(time.RFC3339))
	}

	next := &models.Delivery{
		ID:             uuid.New().String(),
		TaskID:         d.TaskID,
		UserID:         d.UserID,
		OrganizationID: d.OrganizationID,
		PersonID:       d.PersonID,
		TaskTitle:      d.TaskTitle,
		TaskDueAt:      d.TaskDueAt,
		RemindAt:       remindAt,
		Status:         models.DeliveryStatusPending,
		CreatedAt:      now,
	}

	err = m.repo.Supersede(ctx, d, next, now)
	switch {
	case errors.Is(err, ErrStatusChanged):
		return nil, fmt.Errorf("%w: delivery changed while snoozing", ErrInvalidState)
	case errors.Is(err, ErrDuplicateDelivery):
		return nil, fmt.Errorf("%w: a reminder already exists at %s", ErrInvalidState, remindAt.Format(time.RFC3339))
	case err != nil:
		return nil, fmt.Errorf("failed to snooze delivery %s: %w", d.ID, err)
	}

	log.Printf("Snoozed reminder %s until %s (new id %s)", d.ID, remindAt.Format(time.RFC3339), next.ID)
	return next, nil
}

func (m *StateMachine) load(ctx context.Context, deliveryID string, uc models.UserContext) (*models.Delivery, error) {
	d, err := m.repo.Get(ctx, deliveryID, uc)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery %s: %w", deliveryID, err)
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

func validateIdentity(deliveryID string, uc models.UserContext) error {
	if deliveryID == "" {
		return fmt.Errorf("%w: delivery id is required", ErrInvalidArgument)
	}
	if err := uc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}
