package delivery

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/taskreminder/internal/models"
)

const DefaultGraceWindow = 5 * time.Minute

// Scheduler lazily materializes deliveries from task due dates and reminder
// preferences.
type Scheduler struct {
	repo  Repository
	tasks TaskFactProvider
	prefs PreferenceStore

	// GraceWindow is how far in the past a first reminder may still be
	// created. Older candidates with no delivery history count as missed.
	GraceWindow time.Duration
	Now         func() time.Time
}

func NewScheduler(repo Repository, tasks TaskFactProvider, prefs PreferenceStore) *Scheduler {
	return &Scheduler{
		repo:        repo,
		tasks:       tasks,
		prefs:       prefs,
		GraceWindow: DefaultGraceWindow,
		Now:         time.Now,
	}
}

// EnsureDeliveryRecordsForUpcoming makes sure every task of uc with a due
// date and a reminder preference has a delivery for its computed remind time.
// Failures are logged; a failure on one task does not stop the others.
func (s *Scheduler) EnsureDeliveryRecordsForUpcoming(ctx context.Context, uc models.UserContext) {
	if err := uc.Validate(); err != nil {
		log.Printf("Skipping reminder scheduling: %v", err)
		return
	}

	tasks, err := s.tasks.ListTasksWithDueDate(ctx, uc)
	if err != nil {
		log.Printf("Failed to list tasks for user %s: %v", uc.UserID, err)
		return
	}

	now := s.Now()
	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		if err := s.ensureTask(ctx, uc, task, now); err != nil {
			log.Printf("Failed to schedule reminder for task %s user %s: %v", task.TaskID, uc.UserID, err)
		}
	}
}

func (s *Scheduler) ensureTask(ctx context.Context, uc models.UserContext, task models.TaskFact, now time.Time) error {
	if task.DueAt == nil {
		return nil
	}
	cutoff := now.Add(-s.GraceWindow)
	if task.DueAt.Before(cutoff) {
		return nil
	}

	lead, err := s.prefs.GetLeadMinutes(ctx, task.TaskID, uc.UserID)
	if err != nil {
		return err
	}
	pref := models.ReminderPreference{TaskID: task.TaskID, UserID: uc.UserID, LeadMinutes: lead}
	remindAt, ok := pref.RemindAt(task)
	if !ok {
		return nil
	}
	if remindAt.After(*task.DueAt) {
		// negative lead time
		remindAt = *task.DueAt
	}
	remindAt = remindAt.Truncate(time.Millisecond)

	if remindAt.Before(cutoff) {
		seen, err := s.repo.HasAny(ctx, task.TaskID, uc.UserID)
		if err != nil {
			return err
		}
		if !seen {
			// missed, do not backfill
			return nil
		}
	}

	d := &models.Delivery{
		ID:             uuid.New().String(),
		TaskID:         task.TaskID,
		UserID:         uc.UserID,
		OrganizationID: uc.OrganizationID,
		PersonID:       uc.PersonID,
		TaskTitle:      task.Title,
		TaskDueAt:      task.DueAt.Truncate(time.Millisecond),
		RemindAt:       remindAt,
		Status:         models.DeliveryStatusPending,
		CreatedAt:      now,
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, d)
	if err != nil {
		return err
	}
	if inserted {
		log.Printf("Scheduled reminder %s for task %s at %s", d.ID, d.TaskID, d.RemindAt.Format(time.RFC3339))
	}
	return nil
}
