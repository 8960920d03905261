package models

import "time"

const ChannelTelegram = "telegram"

// Subscription is an out-of-band endpoint registered by a user. For the
// telegram channel Endpoint is the chat id.
type Subscription struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	PersonID       string    `json:"person_id,omitempty"`
	Channel        string    `json:"channel"`
	Endpoint       string    `json:"endpoint"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Subscription) Context() UserContext {
	return UserContext{
		UserID:         s.UserID,
		OrganizationID: s.OrganizationID,
		PersonID:       s.PersonID,
	}
}

// PushedNotification is what a platform remembers about a shown
// notification, keyed by (SubscriptionID, Tag).
type PushedNotification struct {
	SubscriptionID string    `json:"subscription_id"`
	Tag            string    `json:"tag"`
	MessageRef     string    `json:"message_ref"` // platform message handle, e.g. telegram message id
	TaskID         string    `json:"task_id"`
	DeliveryID     string    `json:"delivery_id"`
	CreatedAt      time.Time `json:"created_at"`
}
