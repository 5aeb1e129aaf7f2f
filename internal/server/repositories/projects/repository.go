// Package projects stores published arrangements in the content schema.
package projects

import (
	"context"

	"github.com/sanguetsu/ikebana/internal/server/models"
)

// Repository defines project persistence. Read methods join the author row
// and fill models.Project.Author.
type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	ListAll(ctx context.Context) ([]models.Project, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]models.Project, error)
	// SearchByName matches term anywhere in the name, ignoring case. LIKE
	// wildcards inside term match literally.
	SearchByName(ctx context.Context, term string) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id int64) error

	// AddLike upserts accountID -> email into liked_by in one statement.
	AddLike(ctx context.Context, id, accountID int64, email string) error
	// IncrementOrders adds one to the order counter in one statement.
	IncrementOrders(ctx context.Context, id int64) error
	StatsByAuthor(ctx context.Context, authorID int64) (models.AccountStats, error)
}
