package delivery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
)

// memRepository mirrors the unique constraints of the SQL stores: one row per
// (task, user, remindAt) and one pending row per (task, user).
type memRepository struct {
	mu    sync.Mutex
	rows  map[string]*models.Delivery
	order []string
	calls int
}

func newMemRepository() *memRepository {
	return &memRepository{rows: map[string]*models.Delivery{}}
}

func (r *memRepository) conflicts(d *models.Delivery) bool {
	for _, row := range r.rows {
		if row.TaskID != d.TaskID || row.UserID != d.UserID {
			continue
		}
		if row.RemindAt.Equal(d.RemindAt) {
			return true
		}
		if row.IsPending() && d.IsPending() {
			return true
		}
	}
	return false
}

func (r *memRepository) InsertIfAbsent(ctx context.Context, d *models.Delivery) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.conflicts(d) {
		return false, nil
	}
	cp := *d
	r.rows[d.ID] = &cp
	r.order = append(r.order, d.ID)
	return true, nil
}

func (r *memRepository) HasAny(ctx context.Context, taskID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, row := range r.rows {
		if row.TaskID == taskID && row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepository) Get(ctx context.Context, id string, uc models.UserContext) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	row, ok := r.rows[id]
	if !ok || row.UserID != uc.UserID || row.OrganizationID != uc.OrganizationID {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memRepository) ListPending(ctx context.Context, uc models.UserContext, from *time.Time, to time.Time) ([]*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var out []*models.Delivery
	for _, row := range r.rows {
		if row.UserID != uc.UserID || row.OrganizationID != uc.OrganizationID || !row.IsPending() {
			continue
		}
		if from != nil && row.RemindAt.Before(*from) {
			continue
		}
		if row.RemindAt.After(to) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (r *memRepository) Transition(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	row, ok := r.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.ResolvedAt = &at
	return true, nil
}

func (r *memRepository) Supersede(ctx context.Context, old, replacement *models.Delivery, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	row, ok := r.rows[old.ID]
	if !ok || !row.IsPending() {
		return ErrStatusChanged
	}
	row.Status = models.DeliveryStatusSuperseded
	if r.conflicts(replacement) {
		row.Status = models.DeliveryStatusPending
		return ErrDuplicateDelivery
	}
	row.ResolvedAt = &at
	cp := *replacement
	r.rows[replacement.ID] = &cp
	r.order = append(r.order, replacement.ID)
	return nil
}

func (r *memRepository) ListUnpushed(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error) {
	return nil, errors.New("not used")
}

func (r *memRepository) MarkPushed(ctx context.Context, id string, at time.Time) error {
	return errors.New("not used")
}

func (r *memRepository) all() []*models.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Delivery, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.rows[id]
		out = append(out, &cp)
	}
	return out
}

func (r *memRepository) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type memFacts struct {
	tasks   []models.TaskFact
	leads   map[string]*int
	failFor map[string]bool
	listErr error
}

func (f *memFacts) ListTasksWithDueDate(ctx context.Context, uc models.UserContext) ([]models.TaskFact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tasks, nil
}

func (f *memFacts) GetLeadMinutes(ctx context.Context, taskID, userID string) (*int, error) {
	if f.failFor[taskID] {
		return nil, errors.New("preference store unavailable")
	}
	return f.leads[taskID], nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

var (
	base     = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	alice    = models.UserContext{UserID: "user-alice", OrganizationID: "org-1"}
	otherOrg = models.UserContext{UserID: "user-alice", OrganizationID: "org-2"}
)

type fixture struct {
	repo  *memRepository
	facts *memFacts
	clock *testClock
	svc   *Service
}

func newFixture(tasks ...models.TaskFact) *fixture {
	repo := newMemRepository()
	facts := &memFacts{tasks: tasks, leads: map[string]*int{}, failFor: map[string]bool{}}
	clock := &testClock{now: base}
	svc := NewService(repo, facts, facts)
	svc.SetClock(clock.Now)
	return &fixture{repo: repo, facts: facts, clock: clock, svc: svc}
}

func (f *fixture) pendingFor(taskID string) []*models.Delivery {
	var out []*models.Delivery
	for _, d := range f.repo.all() {
		if d.TaskID == taskID && d.IsPending() {
			out = append(out, d)
		}
	}
	return out
}
