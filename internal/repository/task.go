package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hray3182/taskreminder/internal/database"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/jackc/pgx/v5"
)

// TaskFactRepository reads task due dates and reminder lead times. The
// tables belong to the task application; the write methods exist for
// standalone deployments and tests.
type TaskFactRepository struct {
	db *database.DB
}

func NewTaskFactRepository(db *database.DB) *TaskFactRepository {
	return &TaskFactRepository{db: db}
}

func (r *TaskFactRepository) ListTasksWithDueDate(ctx context.Context, uc models.UserContext) ([]models.TaskFact, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, title, due_date FROM task
		 WHERE organization_id = $1 AND due_date IS NOT NULL
		 ORDER BY due_date ASC`,
		uc.OrganizationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.TaskFact
	for rows.Next() {
		var task models.TaskFact
		if err := rows.Scan(&task.TaskID, &task.Title, &task.DueAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *TaskFactRepository) UpsertTask(ctx context.Context, organizationID string, task models.TaskFact) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO task (id, organization_id, title, due_date) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, due_date = EXCLUDED.due_date`,
		task.TaskID, organizationID, task.Title, task.DueAt,
	)
	return err
}

func (r *TaskFactRepository) GetLeadMinutes(ctx context.Context, taskID, userID string) (*int, error) {
	var lead *int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT lead_minutes FROM task_reminder_preference WHERE task_id = $1 AND user_id = $2`,
		taskID, userID,
	).Scan(&lead)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// SetLeadMinutes stores the lead time; nil turns the reminder off.
func (r *TaskFactRepository) SetLeadMinutes(ctx context.Context, taskID, userID string, lead *int) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO task_reminder_preference (task_id, user_id, lead_minutes, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (task_id, user_id) DO UPDATE SET lead_minutes = EXCLUDED.lead_minutes, updated_at = EXCLUDED.updated_at`,
		taskID, userID, lead, time.Now(),
	)
	return err
}
