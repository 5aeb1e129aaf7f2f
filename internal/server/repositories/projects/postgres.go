package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/server/models"
)

const selectProjects = `SELECT p.id, p.name, p.type, p.created_on, p.pictures, p.video, p.description, p.orders,
		p.allow, p.liked_by, p.author_id, a.username, a.full_name, a.city, a.picture
	FROM content.projects p
	JOIN accounts.accounts a ON a.id = p.author_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p.Type == "" {
		p.Type = models.DefaultProjectType
	}
	if p.LikedBy == nil {
		p.LikedBy = models.KeyedMap{}
	}
	p.EnsurePicture()

	query :=
		`INSERT INTO content.projects (name, type, pictures, video, description, allow, liked_by, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_on, orders`

	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.Type, p.Pictures, p.Video, p.Description, p.Allow, p.LikedBy, p.AuthorID,
	).Scan(&p.ID, &p.CreatedOn, &p.Orders)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, selectProjects+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Project, error) {
	return r.list(ctx, selectProjects+` ORDER BY p.id`)
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID int64) ([]models.Project, error) {
	return r.list(ctx, selectProjects+` WHERE p.author_id = $1 ORDER BY p.id`, authorID)
}

func (r *PostgresRepository) SearchByName(ctx context.Context, term string) ([]models.Project, error) {
	return r.list(ctx, selectProjects+` WHERE p.name ILIKE $1 ESCAPE '\' ORDER BY p.id`, "%"+escapeLike(term)+"%")
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Project) error {
	p.EnsurePicture()

	query :=
		`UPDATE content.projects
		 SET name = $2, type = $3, video = $4, description = $5, allow = $6, pictures = $7
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Type, p.Video, p.Description, p.Allow, p.Pictures)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content.projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) AddLike(ctx context.Context, id, accountID int64, email string) error {
	query := `UPDATE content.projects SET liked_by = liked_by || jsonb_build_object($2::text, $3::text) WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, strconv.FormatInt(accountID, 10), email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) IncrementOrders(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE content.projects SET orders = orders + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) StatsByAuthor(ctx context.Context, authorID int64) (models.AccountStats, error) {
	var s models.AccountStats
	query := `SELECT count(*), COALESCE(sum(orders), 0) FROM content.projects WHERE author_id = $1`

	if err := r.db.QueryRowContext(ctx, query, authorID).Scan(&s.Projects, &s.TotalOrders); err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*models.Project, error) {
	p := &models.Project{}
	err := s.Scan(
		&p.ID, &p.Name, &p.Type, &p.CreatedOn, &p.Pictures, &p.Video, &p.Description, &p.Orders,
		&p.Allow, &p.LikedBy, &p.AuthorID,
		&p.Author.Username, &p.Author.FullName, &p.Author.City, &p.Author.Picture,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
