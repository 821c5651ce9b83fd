package wdk

import (
	"time"
)

// TableUser represents a wallet user identified by their identity key.
type TableUser struct {
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        int       `json:"userId"`
	IdentityKey   string    `json:"identityKey"`
	ActiveStorage string    `json:"activeStorage"`
}

// FindOrInsertUserResponse carries the resolved user and whether it was created.
type FindOrInsertUserResponse struct {
	User  TableUser `json:"user"`
	IsNew bool      `json:"isNew"`
}

// AuthID identifies the authenticated user for storage operations.
type AuthID struct {
	IdentityKey string `json:"identityKey"`
	UserID      *int   `json:"userId,omitempty"`
}
