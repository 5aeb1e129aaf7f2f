// Package notifications stores in-app messages addressed to accounts.
package notifications

import (
	"context"

	"github.com/sanguetsu/ikebana/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	// ListByAccount returns the recipient's notifications, newest first.
	ListByAccount(ctx context.Context, accountID int64) ([]models.Notification, error)
	// MarkRead flags one notification as read. It only touches rows owned by
	// accountID and returns common.ErrorNotFound otherwise.
	MarkRead(ctx context.Context, id, accountID int64) error
	DeleteByAccount(ctx context.Context, accountID int64) (int64, error)
}
