// Package accounts declares the storage contract for user accounts and its
// PostgreSQL implementation.
package accounts

import (
	"context"

	"github.com/sanguetsu/ikebana/internal/server/models"
)

// Repository defines account persistence. Lookups return common.ErrorNotFound
// when no row matches; Create and Update return common.ErrorAlreadyExists on a
// username, email or external id collision.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}
