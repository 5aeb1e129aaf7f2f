// Package services contains the server's business logic. Each mutating
// operation runs in a single dbx.WithTx unit of work with repositories bound
// to that transaction. A failing mail or upload step rolls the unit back.
package services

import (
	"context"
	"errors"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/repositories/accounts"
)

// MediaStore is the part of media.Store the services use.
type MediaStore interface {
	StoreAccountPicture(ctx context.Context, accountID int64, u media.Upload) (string, error)
	StoreProjectPicture(ctx context.Context, projectID int64, slot string, u media.Upload) (string, error)
}

// currentAccount resolves the identity carried by an access token. A token
// for an account that no longer exists is treated as unauthenticated.
func currentAccount(ctx context.Context, repo accounts.Repository, identity string) (*models.Account, error) {
	acc, err := repo.GetByUsername(ctx, identity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return acc, nil
}
