package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hray3182/taskreminder/internal/database"
	"github.com/hray3182/taskreminder/internal/delivery"
	"github.com/hray3182/taskreminder/internal/models"
	"github.com/jackc/pgx/v5"
)

const deliveryColumns = `id, task_id, user_id, organization_id, person_id, task_title, task_due_at,
	remind_at, status, pushed_at, resolved_at, created_at`

// DeliveryRepository is the Postgres delivery.Repository. Uniqueness is
// enforced by the task_reminder_delivery constraints, never by reads.
type DeliveryRepository struct {
	db *database.DB
}

func NewDeliveryRepository(db *database.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) InsertIfAbsent(ctx context.Context, d *models.Delivery) (bool, error) {
	return insertDelivery(ctx, r.db.Pool, d)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertDelivery(ctx context.Context, q querier, d *models.Delivery) (bool, error) {
	var id string
	err := q.QueryRow(ctx,
		`INSERT INTO task_reminder_delivery
		   (id, task_id, user_id, organization_id, person_id, task_title, task_due_at, remind_at, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		d.ID, d.TaskID, d.UserID, d.OrganizationID, nullString(d.PersonID), d.TaskTitle,
		d.TaskDueAt, d.RemindAt, string(d.Status), d.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DeliveryRepository) HasAny(ctx context.Context, taskID, userID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM task_reminder_delivery WHERE task_id = $1 AND user_id = $2)`,
		taskID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *DeliveryRepository) Get(ctx context.Context, id string, uc models.UserContext) (*models.Delivery, error) {
	d, err := scanDelivery(r.db.Pool.QueryRow(ctx,
		`SELECT `+deliveryColumns+`
		 FROM task_reminder_delivery
		 WHERE id = $1 AND user_id = $2 AND organization_id = $3`,
		id, uc.UserID, uc.OrganizationID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DeliveryRepository) ListPending(ctx context.Context, uc models.UserContext, from *time.Time, to time.Time) ([]*models.Delivery, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+deliveryColumns+`
		 FROM task_reminder_delivery
		 WHERE user_id = $1 AND organization_id = $2 AND status = 'pending'
		   AND remind_at <= $3 AND ($4::timestamptz IS NULL OR remind_at >= $4)
		 ORDER BY remind_at ASC, created_at ASC`,
		uc.UserID, uc.OrganizationID, to, from,
	)
	if err != nil {
		return nil, err
	}
	return collectDeliveries(rows)
}

func (r *DeliveryRepository) Transition(ctx context.Context, id string, from, to models.DeliveryStatus, at time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE task_reminder_delivery SET status = $3, resolved_at = $4
		 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DeliveryRepository) Supersede(ctx context.Context, old, replacement *models.Delivery, at time.Time) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE task_reminder_delivery SET status = 'superseded', resolved_at = $2
		 WHERE id = $1 AND status = 'pending'`,
		old.ID, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return delivery.ErrStatusChanged
	}

	inserted, err := insertDelivery(ctx, tx, replacement)
	if err != nil {
		return err
	}
	if !inserted {
		return delivery.ErrDuplicateDelivery
	}

	return tx.Commit(ctx)
}

func (r *DeliveryRepository) ListUnpushed(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+deliveryColumns+`
		 FROM task_reminder_delivery
		 WHERE status = 'pending' AND pushed_at IS NULL AND remind_at <= $1
		 ORDER BY remind_at ASC
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectDeliveries(rows)
}

func (r *DeliveryRepository) MarkPushed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE task_reminder_delivery SET pushed_at = $2 WHERE id = $1 AND pushed_at IS NULL`,
		id, at,
	)
	return err
}

func scanDelivery(row pgx.Row) (*models.Delivery, error) {
	d := &models.Delivery{}
	var personID *string
	var status string
	err := row.Scan(&d.ID, &d.TaskID, &d.UserID, &d.OrganizationID, &personID, &d.TaskTitle,
		&d.TaskDueAt, &d.RemindAt, &status, &d.PushedAt, &d.ResolvedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if personID != nil {
		d.PersonID = *personID
	}
	d.Status = models.DeliveryStatus(status)
	return d, nil
}

func collectDeliveries(rows pgx.Rows) ([]*models.Delivery, error) {
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
