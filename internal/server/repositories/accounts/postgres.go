package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/server/models"
)

const columns = `id, username, email, external_id, full_name, phone, city, personal_address, work_address,
		location, bio, picture, password_digest, confirmed, confirmed_on, partner, partner_on, created_on`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts.accounts (username, email, external_id, full_name, picture, password_digest, confirmed, confirmed_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_on`

	if a.Picture == "" {
		a.Picture = models.DefaultAccountPicture
	}

	err := r.db.QueryRowContext(ctx, query,
		a.Username, a.Email, a.ExternalID, a.FullName, a.Picture, a.PasswordDigest, a.Confirmed, a.ConfirmedOn,
	).Scan(&a.ID, &a.CreatedOn)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM accounts.accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM accounts.accounts WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM accounts.accounts WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM accounts.accounts WHERE external_id = $1`, externalID)
}

// Update writes every mutable column of the account identified by a.ID.
func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts.accounts
		 SET full_name = $2, phone = $3, city = $4, personal_address = $5, work_address = $6, location = $7,
		     bio = $8, picture = $9, password_digest = $10, confirmed = $11, confirmed_on = $12,
		     partner = $13, partner_on = $14
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.FullName, a.Phone, a.City, a.PersonalAddress, a.WorkAddress, a.Location,
		a.Bio, a.Picture, a.PasswordDigest, a.Confirmed, a.ConfirmedOn,
		a.Partner, a.PartnerOn,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
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

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &a.Email, &a.ExternalID, &a.FullName, &a.Phone, &a.City, &a.PersonalAddress,
		&a.WorkAddress, &a.Location, &a.Bio, &a.Picture, &a.PasswordDigest, &a.Confirmed, &a.ConfirmedOn,
		&a.Partner, &a.PartnerOn, &a.CreatedOn,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
