package models

import "time"

// DeliveryStatus is the lifecycle state of a Delivery.
type DeliveryStatus string

const (
	DeliveryStatusPending      DeliveryStatus = "pending"
	DeliveryStatusAcknowledged DeliveryStatus = "acknowledged"
	DeliveryStatusDismissed    DeliveryStatus = "dismissed"
	DeliveryStatusSuperseded   DeliveryStatus = "superseded"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s DeliveryStatus) IsTerminal() bool {
	return s != DeliveryStatusPending
}

// Delivery is a persisted decision that a user should be reminded about a
// task at RemindAt. TaskTitle and TaskDueAt are snapshots taken when the
// delivery was created.
type Delivery struct {
	ID             string         `json:"id"`
	TaskID         string         `json:"task_id"`
	UserID         string         `json:"user_id"`
	OrganizationID string         `json:"organization_id"`
	PersonID       string         `json:"person_id,omitempty"`
	TaskTitle      string         `json:"task_title"`
	TaskDueAt      time.Time      `json:"task_due_at"`
	RemindAt       time.Time      `json:"remind_at"` // immutable, always <= TaskDueAt
	Status         DeliveryStatus `json:"status"`
	PushedAt       *time.Time     `json:"pushed_at"`   // set once the dispatcher handed it to the push channel
	ResolvedAt     *time.Time     `json:"resolved_at"` // set when leaving pending
	CreatedAt      time.Time      `json:"created_at"`
}

// IsPending returns true if the delivery can still be acted on
func (d *Delivery) IsPending() bool {
	return d.Status == DeliveryStatusPending
}

// Context returns the tenancy context the delivery belongs to.
func (d *Delivery) Context() UserContext {
	return UserContext{
		UserID:         d.UserID,
		OrganizationID: d.OrganizationID,
		PersonID:       d.PersonID,
	}
}
