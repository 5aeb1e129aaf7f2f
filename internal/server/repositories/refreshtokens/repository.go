// Package refreshtokens declares the storage contract for refresh tokens and
// its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/sanguetsu/ikebana/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores token for accountID with an expiry of now+validity.
	Create(ctx context.Context, accountID int64, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is unknown.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is a no-op for unknown tokens.
	Delete(ctx context.Context, token string) error
}
