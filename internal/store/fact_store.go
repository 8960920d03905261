package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hray3182/taskreminder/internal/models"
)

type taskRow struct {
	ID      string `db:"id"`
	Title   string `db:"title"`
	DueDate *int64 `db:"due_date"`
}

func (s *SQLiteStore) ListTasksWithDueDate(ctx context.Context, uc models.UserContext) ([]models.TaskFact, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, title, due_date FROM task
		 WHERE organization_id = ? AND due_date IS NOT NULL
		 ORDER BY due_date ASC`,
		uc.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]models.TaskFact, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, models.TaskFact{
			TaskID: row.ID,
			Title:  row.Title,
			DueAt:  fromNullMillis(row.DueDate),
		})
	}
	return tasks, nil
}

// UpsertTask records a task fact. Used when no task application shares the
// database.
func (s *SQLiteStore) UpsertTask(ctx context.Context, organizationID string, task models.TaskFact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task (id, organization_id, title, due_date) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, due_date = excluded.due_date`,
		task.TaskID, organizationID, task.Title, toNullMillis(task.DueAt),
	)
	if err != nil {
		return fmt.Errorf("upserting task %s: %w", task.TaskID, err)
	}
	return nil
}

func (s *SQLiteStore) GetLeadMinutes(ctx context.Context, taskID, userID string) (*int, error) {
	var lead sql.NullInt64
	err := s.db.GetContext(ctx, &lead,
		`SELECT lead_minutes FROM task_reminder_preference WHERE task_id = ? AND user_id = ?`,
		taskID, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lead minutes: %w", err)
	}
	if !lead.Valid {
		return nil, nil
	}
	v := int(lead.Int64)
	return &v, nil
}

func (s *SQLiteStore) SetLeadMinutes(ctx context.Context, taskID, userID string, lead *int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_reminder_preference (task_id, user_id, lead_minutes) VALUES (?, ?, ?)
		ON CONFLICT (task_id, user_id) DO UPDATE SET lead_minutes = excluded.lead_minutes`,
		taskID, userID, lead,
	)
	if err != nil {
		return fmt.Errorf("setting lead minutes: %w", err)
	}
	return nil
}
