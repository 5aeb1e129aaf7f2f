package repomanager

import (
	"context"
	"database/sql"

	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/server/repositories/accounts"
	"github.com/sanguetsu/ikebana/internal/server/repositories/notifications"
	"github.com/sanguetsu/ikebana/internal/server/repositories/projects"
	"github.com/sanguetsu/ikebana/internal/server/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to a DBTX, so services can hand
// them either the pool or the transaction of the current unit of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Projects(db dbx.DBTX) projects.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
