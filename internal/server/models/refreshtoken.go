package models

import "time"

// RefreshToken is an opaque, server-side revocable token that can be traded
// for a new access token until it expires.
type RefreshToken struct {
	ID        int64
	AccountID int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
