package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
)

func TestDueNowAndUpcomingSplitByRemindTime(t *testing.T) {
	f := newFixture(
		models.TaskFact{TaskID: "due", Title: "Due", DueAt: timePtr(base.Add(30 * time.Minute))},
		models.TaskFact{TaskID: "soon", Title: "Soon", DueAt: timePtr(base.Add(3 * time.Hour))},
		models.TaskFact{TaskID: "later", Title: "Later", DueAt: timePtr(base.Add(72 * time.Hour))},
	)
	f.facts.leads["due"] = intPtr(32)
	f.facts.leads["soon"] = intPtr(60)
	f.facts.leads["later"] = intPtr(60)
	ctx := context.Background()

	due, err := f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow failed: %v", err)
	}
	if len(due) != 1 || due[0].TaskID != "due" {
		t.Fatalf("Expected only task 'due', got %+v", due)
	}

	upcoming, err := f.svc.Upcoming(ctx, alice, DefaultUpcomingWindow)
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].TaskID != "soon" {
		t.Fatalf("Expected only task 'soon', got %+v", upcoming)
	}

	upcoming, err = f.svc.Upcoming(ctx, alice, 96*time.Hour)
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(upcoming) != 2 || upcoming[0].TaskID != "soon" || upcoming[1].TaskID != "later" {
		t.Errorf("Expected soon then later, got %+v", upcoming)
	}
}

func TestUpcomingRejectsNonPositiveWindow(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Upcoming(context.Background(), alice, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestQueriesAreTenantScoped(t *testing.T) {
	f := newFixture(models.TaskFact{TaskID: "task-1", Title: "A", DueAt: timePtr(base.Add(time.Hour))})
	f.facts.leads["task-1"] = intPtr(60)
	ctx := context.Background()

	if _, err := f.svc.DueNow(ctx, alice); err != nil {
		t.Fatalf("DueNow failed: %v", err)
	}

	f.facts.tasks = nil
	due, err := f.svc.DueNow(ctx, otherOrg)
	if err != nil {
		t.Fatalf("DueNow failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected no deliveries for another organization, got %d", len(due))
	}
}

func TestDueNowDropsResolvedDeliveries(t *testing.T) {
	f, d := dueFixture(t)
	ctx := context.Background()

	if err := f.svc.Dismiss(ctx, d.ID, alice); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	due, err := f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected dismissed delivery to leave due-now, got %d", len(due))
	}
}

func TestReminderLifecycle(t *testing.T) {
	// Task due at 10:00 with a 30 minute lead.
	due := base.Add(time.Hour)
	f := newFixture(models.TaskFact{TaskID: "task-1", Title: "Standup notes", DueAt: &due})
	f.facts.leads["task-1"] = intPtr(30)
	ctx := context.Background()

	f.clock.Set(base.Add(20 * time.Minute))
	got, err := f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow at 09:20 failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected nothing due at 09:20, got %d", len(got))
	}
	upcoming, err := f.svc.Upcoming(ctx, alice, DefaultUpcomingWindow)
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(upcoming) != 1 || !upcoming[0].RemindAt.Equal(base.Add(30*time.Minute)) {
		t.Fatalf("Expected one upcoming reminder at 09:30, got %+v", upcoming)
	}

	f.clock.Set(base.Add(31 * time.Minute))
	got, err = f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow at 09:31 failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 due at 09:31, got %d", len(got))
	}
	first := got[0]

	second, err := f.svc.Snooze(ctx, first.ID, alice, 10)
	if err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if !second.RemindAt.Equal(base.Add(41 * time.Minute)) {
		t.Errorf("Expected snoozed remindAt 09:41, got %s", second.RemindAt)
	}

	f.clock.Set(base.Add(35 * time.Minute))
	got, err = f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow at 09:35 failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected nothing due at 09:35, got %d", len(got))
	}

	f.clock.Set(base.Add(42 * time.Minute))
	got, err = f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow at 09:42 failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != second.ID {
		t.Fatalf("Expected the snoozed delivery due at 09:42, got %+v", got)
	}

	if err := f.svc.Acknowledge(ctx, second.ID, alice); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	got, err = f.svc.DueNow(ctx, alice)
	if err != nil {
		t.Fatalf("DueNow after acknowledge failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected nothing due after acknowledge, got %d", len(got))
	}

	rows := f.repo.all()
	if len(rows) != 2 {
		t.Fatalf("Expected exactly 2 deliveries, got %d", len(rows))
	}
	if rows[0].Status != models.DeliveryStatusSuperseded || rows[1].Status != models.DeliveryStatusAcknowledged {
		t.Errorf("Unexpected final statuses: %s, %s", rows[0].Status, rows[1].Status)
	}
}
