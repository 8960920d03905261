package delivery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
)

func dueFixture(t *testing.T) (*fixture, *models.Delivery) {
	t.Helper()
	f := newFixture(models.TaskFact{TaskID: "task-1", Title: "Pay invoice", DueAt: timePtr(base.Add(time.Hour))})
	f.facts.leads["task-1"] = intPtr(60)

	due, err := f.svc.DueNow(context.Background(), alice)
	if err != nil {
		t.Fatalf("DueNow failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("Expected 1 due delivery, got %d", len(due))
	}
	return f, due[0]
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	if err := f.svc.Acknowledge(ctx, d.ID, alice); err != nil {
		t.Fatalf("First acknowledge failed: %v", err)
	}
	if err := f.svc.Acknowledge(ctx, d.ID, alice); err != nil {
		t.Fatalf("Second acknowledge failed: %v", err)
	}

	got := f.repo.all()[0]
	if got.Status != models.DeliveryStatusAcknowledged {
		t.Errorf("Expected acknowledged, got %s", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Error("Expected resolvedAt to be set")
	}
}

func TestDismissIsIdempotent(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.svc.Dismiss(ctx, d.ID, alice); err != nil {
			t.Fatalf("Dismiss #%d failed: %v", i+1, err)
		}
	}
	if got := f.repo.all()[0].Status; got != models.DeliveryStatusDismissed {
		t.Errorf("Expected dismissed, got %s", got)
	}
}

func TestTerminalStatesRejectOtherTransitions(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	if err := f.svc.Dismiss(ctx, d.ID, alice); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if err := f.svc.Acknowledge(ctx, d.ID, alice); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState acknowledging a dismissed delivery, got %v", err)
	}
	if _, err := f.svc.Snooze(ctx, d.ID, alice, 10); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState snoozing a dismissed delivery, got %v", err)
	}
}

func TestOtherTenantGetsNotFound(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()
	bob := models.UserContext{UserID: "user-bob", OrganizationID: "org-1"}

	for _, uc := range []models.UserContext{otherOrg, bob} {
		if err := f.svc.Acknowledge(ctx, d.ID, uc); !errors.Is(err, ErrNotFound) {
			t.Errorf("Acknowledge as %+v: expected ErrNotFound, got %v", uc, err)
		}
		if err := f.svc.Dismiss(ctx, d.ID, uc); !errors.Is(err, ErrNotFound) {
			t.Errorf("Dismiss as %+v: expected ErrNotFound, got %v", uc, err)
		}
		if _, err := f.svc.Snooze(ctx, d.ID, uc, 5); !errors.Is(err, ErrNotFound) {
			t.Errorf("Snooze as %+v: expected ErrNotFound, got %v", uc, err)
		}
	}

	if got := f.repo.all()[0].Status; got != models.DeliveryStatusPending {
		t.Errorf("Expected delivery untouched, got %s", got)
	}
}

func TestUnknownDeliveryNotFound(t *testing.T) {
	f := newFixture()
	if err := f.svc.Acknowledge(context.Background(), "missing", alice); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestIncompleteContextRejected(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	if err := f.svc.Acknowledge(ctx, d.ID, models.UserContext{UserID: "user-alice"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.svc.DueNow(ctx, models.UserContext{OrganizationID: "org-1"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestSnoozeSupersedesDelivery(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	next, err := f.svc.Snooze(ctx, d.ID, alice, 15)
	if err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if next.ID == d.ID {
		t.Error("Expected a new delivery id")
	}
	if !next.RemindAt.Equal(base.Add(15 * time.Minute)) {
		t.Errorf("Expected remindAt %s, got %s", base.Add(15*time.Minute), next.RemindAt)
	}
	if next.TaskTitle != d.TaskTitle || !next.TaskDueAt.Equal(d.TaskDueAt) {
		t.Error("Expected task snapshot to carry over")
	}

	rows := f.repo.all()
	if rows[0].Status != models.DeliveryStatusSuperseded {
		t.Errorf("Expected original superseded, got %s", rows[0].Status)
	}
	if pending := f.pendingFor("task-1"); len(pending) != 1 || pending[0].ID != next.ID {
		t.Errorf("Expected only the snoozed delivery pending, got %+v", pending)
	}

	due, err := f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected nothing due right after snooze, got %d", len(due))
	}
}

func TestSnoozeIsCappedAtDueDate(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	next, err := f.svc.Snooze(ctx, d.ID, alice, 600)
	if err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if !next.RemindAt.Equal(d.TaskDueAt) {
		t.Errorf("Expected remindAt capped at %s, got %s", d.TaskDueAt, next.RemindAt)
	}

	// Already at the due date, so there is nowhere later to go.
	f.clock.Set(d.TaskDueAt)
	if _, err := f.svc.Snooze(ctx, next.ID, alice, 5); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
	if got := len(f.pendingFor("task-1")); got != 1 {
		t.Errorf("Expected 1 pending delivery, got %d", got)
	}
}

func TestSnoozeUpcomingMovesEarlier(t *testing.T) {
	f := newFixture(models.TaskFact{TaskID: "task-1", Title: "Pay invoice", DueAt: timePtr(base.Add(time.Hour))})
	f.facts.leads["task-1"] = intPtr(30)
	f.clock.Set(base.Add(10 * time.Minute))
	ctx := context.Background()

	upcoming, err := f.svc.Upcoming(ctx, alice, DefaultUpcomingWindow)
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(upcoming) != 1 {
		t.Fatalf("Expected 1 upcoming delivery, got %d", len(upcoming))
	}

	next, err := f.svc.Snooze(ctx, upcoming[0].ID, alice, 5)
	if err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if want := base.Add(15 * time.Minute); !next.RemindAt.Equal(want) {
		t.Errorf("Expected remindAt %s, got %s", want, next.RemindAt)
	}
	if pending := f.pendingFor("task-1"); len(pending) != 1 || pending[0].ID != next.ID {
		t.Errorf("Expected only the snoozed delivery pending, got %+v", pending)
	}
}

func TestSnoozeHugeDurationIsCapped(t *testing.T) {
	for _, minutes := range []int{200000000, math.MaxInt} {
		f, d := dueFixture(t)

		next, err := f.svc.Snooze(context.Background(), d.ID, alice, minutes)
		if err != nil {
			t.Fatalf("Snooze(%d) failed: %v", minutes, err)
		}
		if !next.RemindAt.Equal(d.TaskDueAt) {
			t.Errorf("Snooze(%d): expected remindAt capped at %s, got %s", minutes, d.TaskDueAt, next.RemindAt)
		}
	}
}

func TestSnoozeRejectsNonPositiveMinutesBeforeStorage(t *testing.T) {
	f := newFixture()
	for _, minutes := range []int{0, -5} {
		if _, err := f.svc.Snooze(context.Background(), "anything", alice, minutes); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Snooze(%d): expected ErrInvalidArgument, got %v", minutes, err)
		}
	}
	if got := f.repo.callCount(); got != 0 {
		t.Errorf("Expected no storage calls, got %d", got)
	}
}

func TestSnoozeResolvedDeliveryFails(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	if err := f.svc.Acknowledge(ctx, d.ID, alice); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, d.ID, alice, 10); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestSnoozeSupersededDeliveryFails(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Snooze(ctx, d.ID, alice, 10); err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if _, err := f.svc.Snooze(ctx, d.ID, alice, 20); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState re-snoozing a superseded delivery, got %v", err)
	}
}

// racingRepository lets a concurrent writer resolve the row between the read
// and the compare-and-set.
type racingRepository struct {
	*memRepository
	raceTo models.DeliveryStatus
	raced  bool
}

func (r *racingRepository) Transition(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.memRepository.Transition(ctx, id, from, r.raceTo, at); err != nil {
			return false, err
		}
	}
	return r.memRepository.Transition(ctx, id, from, to, at)
}

func TestAcknowledgeLosingRaceRereads(t *testing.T) {
	tests := []struct {
		name    string
		raceTo  models.DeliveryStatus
		wantErr error
	}{
		{"concurrent acknowledge", models.DeliveryStatusAcknowledged, nil},
		{"concurrent dismiss", models.DeliveryStatusDismissed, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, d := dueFixture(t)
			sm := NewStateMachine(&racingRepository{memRepository: f.repo, raceTo: tt.raceTo})
			sm.Now = f.clock.Now

			err := sm.Acknowledge(context.Background(), d.ID, alice)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
