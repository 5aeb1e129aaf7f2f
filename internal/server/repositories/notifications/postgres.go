package notifications

import (
	"context"
	"fmt"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.Sender == "" {
		n.Sender = common.SystemSender
	}

	query :=
		`INSERT INTO accounts.notifications (account_id, sender, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, sent_on, is_read`

	err := r.db.QueryRowContext(ctx, query, n.AccountID, n.Sender, n.Content).Scan(&n.ID, &n.SentOn, &n.IsRead)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64) ([]models.Notification, error) {
	query :=
		`SELECT id, account_id, sender, sent_on, content, is_read
		 FROM accounts.notifications
		 WHERE account_id = $1
		 ORDER BY sent_on DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Sender, &n.SentOn, &n.Content, &n.IsRead); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id, accountID int64) error {
	query := `UPDATE accounts.notifications SET is_read = TRUE WHERE id = $1 AND account_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts.notifications WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
