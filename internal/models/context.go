package models

import "errors"

var ErrIncompleteContext = errors.New("user context requires user and organization")

// UserContext scopes every delivery operation to one user in one
// organization. PersonID is optional.
type UserContext struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	PersonID       string `json:"person_id,omitempty"`
}

func (c UserContext) Validate() error {
	if c.UserID == "" || c.OrganizationID == "" {
		return ErrIncompleteContext
	}
	return nil
}
