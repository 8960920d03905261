package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
	"github.com/hray3182/taskreminder/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedTask stores a task due at dueAt and, when lead is non-nil, the user's
// lead time for it.
func SeedTask(t *testing.T, s *store.SQLiteStore, uc models.UserContext, taskID, title string, dueAt time.Time, lead *int) {
	t.Helper()

	ctx := context.Background()
	if err := s.UpsertTask(ctx, uc.OrganizationID, models.TaskFact{TaskID: taskID, Title: title, DueAt: &dueAt}); err != nil {
		t.Fatalf("seeding task %s: %v", taskID, err)
	}
	if lead != nil {
		if err := s.SetLeadMinutes(ctx, taskID, uc.UserID, lead); err != nil {
			t.Fatalf("seeding lead time for %s: %v", taskID, err)
		}
	}
}

// Clock is a settable time source for services that take Now func() time.Time.
type Clock struct {
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Set(now time.Time) { c.now = now }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
