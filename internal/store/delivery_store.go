package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/jmoiron/sqlx"
)

type deliveryRow struct {
	ID             string `db:"id"`
	TaskID         string `db:"task_id"`
	UserID         string `db:"user_id"`
	OrganizationID string `db:"organization_id"`
	PersonID       string `db:"person_id"`
	TaskTitle      string `db:"task_title"`
	TaskDueAt      int64  `db:"task_due_at"`
	RemindAt       int64  `db:"remind_at"`
	Status         string `db:"status"`
	PushedAt       *int64 `db:"pushed_at"`
	ResolvedAt     *int64 `db:"resolved_at"`
	CreatedAt      int64  `db:"created_at"`
}

func (r deliveryRow) toModel() *models.Delivery {
	return &models.Delivery{
		ID:             r.ID,
		TaskID:         r.TaskID,
		UserID:         r.UserID,
		OrganizationID: r.OrganizationID,
		PersonID:       r.PersonID,
		TaskTitle:      r.TaskTitle,
		TaskDueAt:      fromMillis(r.TaskDueAt),
		RemindAt:       fromMillis(r.RemindAt),
		Status:         models.DeliveryStatus(r.Status),
		PushedAt:       fromNullMillis(r.PushedAt),
		ResolvedAt:     fromNullMillis(r.ResolvedAt),
		CreatedAt:      fromMillis(r.CreatedAt),
	}
}

const selectDelivery = `SELECT id, task_id, user_id, organization_id, person_id, task_title,
	task_due_at, remind_at, status, pushed_at, resolved_at, created_at
	FROM task_reminder_delivery`

func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, d *models.Delivery) (bool, error) {
	return insertDelivery(ctx, s.db, d)
}

func insertDelivery(ctx context.Context, ex sqlx.ExecerContext, d *models.Delivery) (bool, error) {
	result, err := ex.ExecContext(ctx, `
		INSERT INTO task_reminder_delivery (
			id, task_id, user_id, organization_id, person_id, task_title,
			task_due_at, remind_at, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		d.ID, d.TaskID, d.UserID, d.OrganizationID, d.PersonID, d.TaskTitle,
		toMillis(d.TaskDueAt), toMillis(d.RemindAt), string(d.Status), toMillis(d.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting delivery %s: %w", d.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) HasAny(ctx context.Context, taskID, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM task_reminder_delivery WHERE task_id = ? AND user_id = ?)`,
		taskID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("checking delivery history: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string, uc models.UserContext) (*models.Delivery, error) {
	var row deliveryRow
	err := s.db.GetContext(ctx, &row,
		selectDelivery+` WHERE id = ? AND user_id = ? AND organization_id = ?`,
		id, uc.UserID, uc.OrganizationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting delivery %s: %w", id, err)
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) ListPending(ctx context.Context, uc models.UserContext, from *time.Time, to time.Time) ([]*models.Delivery, error) {
	query := selectDelivery + ` WHERE user_id = ? AND organization_id = ? AND status = 'pending' AND remind_at <= ?`
	args := []interface{}{uc.UserID, uc.OrganizationID, toMillis(to)}
	if from != nil {
		query += ` AND remind_at >= ?`
		args = append(args, toMillis(*from))
	}
	query += ` ORDER BY remind_at ASC, created_at ASC`

	return s.selectDeliveries(ctx, query, args...)
}

func (s *SQLiteStore) Transition(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE task_reminder_delivery SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		string(to), toMillis(at), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("updating delivery %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Supersede(ctx context.Context, old, replacement *models.Delivery, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE task_reminder_delivery SET status = 'superseded', resolved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		toMillis(at), old.ID,
	)
	if err != nil {
		return fmt.Errorf("superseding delivery %s: %w", old.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return delivery.ErrStatusChanged
	}

	inserted, err := insertDelivery(ctx, tx, replacement)
	if err != nil {
		return err
	}
	if !inserted {
		return delivery.ErrDuplicateDelivery
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListUnpushed(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error) {
	return s.selectDeliveries(ctx,
		selectDelivery+` WHERE status = 'pending' AND pushed_at IS NULL AND remind_at <= ?
		ORDER BY remind_at ASC LIMIT ?`,
		toMillis(now), limit,
	)
}

func (s *SQLiteStore) MarkPushed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE task_reminder_delivery SET pushed_at = ? WHERE id = ? AND pushed_at IS NULL`,
		toMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("marking delivery %s pushed: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) selectDeliveries(ctx context.Context, query string, args ...interface{}) ([]*models.Delivery, error) {
	var rows []deliveryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}

	deliveries := make([]*models.Delivery, 0, len(rows))
	for _, row := range rows {
		deliveries = append(deliveries, row.toModel())
	}
	return deliveries, nil
}
