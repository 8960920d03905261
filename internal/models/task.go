package models

import (
	"math"
	"time"
)

// TaskFact is the read-only view of a task that reminder scheduling needs.
type TaskFact struct {
	TaskID string     `json:"task_id"`
	Title  string     `json:"title"`
	DueAt  *time.Time `json:"due_at"`
}

// ReminderPreference is a user's lead time for one task. A nil LeadMinutes
// means the user does not want a reminder.
type ReminderPreference struct {
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
	LeadMinutes *int   `json:"lead_minutes"`
}

// RemindAt returns DueAt minus the lead time, or false if either fact is
// missing.
func (p ReminderPreference) RemindAt(task TaskFact) (time.Time, bool) {
	if task.DueAt == nil || p.LeadMinutes == nil {
		return time.Time{}, false
	}
	return task.DueAt.Add(-Minutes(*p.LeadMinutes)), true
}

// maxMinutes is the largest whole number of minutes a time.Duration holds.
const maxMinutes = int64(math.MaxInt64 / int64(time.Minute))

// Minutes converts n to a Duration, saturating at roughly 292 years instead
// of overflowing.
func Minutes(n int) time.Duration {
	switch {
	case int64(n) > maxMinutes:
		return time.Duration(maxMinutes) * time.Minute
	case int64(n) < -maxMinutes:
		return -time.Duration(maxMinutes) * time.Minute
	}
	return time.Duration(n) * time.Minute
}
