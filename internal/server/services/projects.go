package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/notify"
	"github.com/sanguetsu/ikebana/internal/server/repositories/repomanager"
	"github.com/sanguetsu/ikebana/internal/server/validate"
)

// ProjectInput is the editable part of a project as submitted by a partner.
// Images maps picture slot to upload; Remove lists slots to drop.
type ProjectInput struct {
	Title       string
	Type        string
	Video       string
	Description string
	Allow       bool
	Images      map[string]media.Upload
	Remove      []string
}

type ProjectService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	composer *notify.Composer
	media    MediaStore
	log      logging.Logger
}

func NewProjectService(db *sql.DB, rm repomanager.RepositoryManager, composer *notify.Composer,
	media MediaStore, log logging.Logger) *ProjectService {
	return &ProjectService{
		db:       db,
		rm:       rm,
		composer: composer,
		media:    media,
		log:      log.With("module", "projects"),
	}
}

func (s *ProjectService) partner(ctx context.Context, tx dbx.DBTX, identity string) (*models.Account, error) {
	acc, err := currentAccount(ctx, s.rm.Accounts(tx), identity)
	if err != nil {
		return nil, err
	}
	if !acc.Partner {
		return nil, common.ErrorNotPartner
	}
	return acc, nil
}

// owned loads a project and checks that acc wrote it.
func (s *ProjectService) owned(ctx context.Context, tx dbx.DBTX, acc *models.Account, projectID int64) (*models.Project, error) {
	p, err := s.rm.Projects(tx).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != acc.ID {
		return nil, common.ErrorForbidden
	}
	return p, nil
}

// Create publishes a project for a partner. The row is inserted first so the
// pictures can be keyed by the project id.
func (s *ProjectService) Create(ctx context.Context, identity string, in ProjectInput) (*models.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.ProjectName(in.Title); err != nil {
		return nil, err
	}

	var created *models.Project
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.partner(ctx, tx, identity)
		if err != nil {
			return err
		}

		repo := s.rm.Projects(tx)
		p, err := repo.Create(ctx, &models.Project{
			Name:        in.Title,
			Type:        in.Type,
			Video:       in.Video,
			Description: in.Description,
			Allow:       in.Allow,
			AuthorID:    acc.ID,
		})
		if err != nil {
			return err
		}

		if len(in.Images) > 0 {
			p.Pictures = models.KeyedMap{}
			if err := s.storeImages(ctx, p, in.Images); err != nil {
				return err
			}
			if err := repo.Update(ctx, p); err != nil {
				return err
			}
		}

		if _, err := s.composer.Notify(ctx, s.rm.Notifications(tx), acc.ID,
			notify.Message{Kind: notify.KindNewProject, Project: p.Name}); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "project created", "project_id", created.ID, "author_id", created.AuthorID)
	return created, nil
}

func (s *ProjectService) storeImages(ctx context.Context, p *models.Project, images map[string]media.Upload) error {
	slots := make([]string, 0, len(images))
	for slot := range images {
		slots = append(slots, slot)
	}
	slices.Sort(slots)

	for _, slot := range slots {
		url, err := s.media.StoreProjectPicture(ctx, p.ID, slot, images[slot])
		if err != nil {
			return err
		}
		p.Pictures.Put(slot, url)
	}
	return nil
}

// ListOwn returns the caller's projects.
func (s *ProjectService) ListOwn(ctx context.Context, identity string) ([]models.Project, error) {
	acc, err := currentAccount(ctx, s.rm.Accounts(s.db), identity)
	if err != nil {
		return nil, err
	}
	return s.rm.Projects(s.db).ListByAuthor(ctx, acc.ID)
}

// Update overwrites the mutable fields of the caller's project. New images
// are stored before slots listed in Remove are dropped; the placeholder
// comes back when nothing is left.
func (s *ProjectService) Update(ctx context.Context, identity string, projectID int64, in ProjectInput) (*models.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.ProjectName(in.Title); err != nil {
		return nil, err
	}

	var updated *models.Project
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.partner(ctx, tx, identity)
		if err != nil {
			return err
		}
		p, err := s.owned(ctx, tx, acc, projectID)
		if err != nil {
			return err
		}

		p.Name = in.Title
		if in.Type != "" {
			p.Type = in.Type
		}
		p.Video = in.Video
		p.Description = in.Description
		p.Allow = in.Allow

		if p.Pictures == nil {
			p.Pictures = models.KeyedMap{}
		}
		if len(in.Images) > 0 && onlyPlaceholder(p.Pictures) {
			p.Pictures.Delete(models.PlaceholderSlot)
		}
		if err := s.storeImages(ctx, p, in.Images); err != nil {
			return err
		}
		for _, slot := range in.Remove {
			p.Pictures.Delete(slot)
		}
		p.EnsurePicture()

		if err := s.rm.Projects(tx).Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func onlyPlaceholder(pictures models.KeyedMap) bool {
	return pictures.Len() == 1 && pictures[models.PlaceholderSlot] == models.DefaultProjectPicture
}

// Delete removes the caller's project.
func (s *ProjectService) Delete(ctx context.Context, identity string, projectID int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.partner(ctx, tx, identity)
		if err != nil {
			return err
		}
		if _, err := s.owned(ctx, tx, acc, projectID); err != nil {
			return err
		}
		return s.rm.Projects(tx).Delete(ctx, projectID)
	})
}

func (s *ProjectService) ListAll(ctx context.Context) ([]models.Project, error) {
	return s.rm.Projects(s.db).ListAll(ctx)
}

// Search matches term anywhere in the project name, ignoring case.
func (s *ProjectService) Search(ctx context.Context, term string) ([]models.Project, error) {
	return s.rm.Projects(s.db).SearchByName(ctx, term)
}

func (s *ProjectService) Get(ctx context.Context, projectID int64) (*models.Project, error) {
	return s.rm.Projects(s.db).GetByID(ctx, projectID)
}

// Like records the caller in the project's liked_by set. Liking twice
// changes nothing.
func (s *ProjectService) Like(ctx context.Context, identity string, projectID int64) error {
	acc, err := currentAccount(ctx, s.rm.Accounts(s.db), identity)
	if err != nil {
		return err
	}
	return s.rm.Projects(s.db).AddLike(ctx, projectID, acc.ID, acc.Email)
}

// Solicit places one order per distinct project and notifies each author.
// Either every project is ordered or none is.
func (s *ProjectService) Solicit(ctx context.Context, identity string, projectIDs []int64, note string) error {
	ids := slices.Clone(projectIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return fmt.Errorf("%w: no projects requested", common.ErrorValidation)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		requester, err := currentAccount(ctx, s.rm.Accounts(tx), identity)
		if err != nil {
			return err
		}

		repo := s.rm.Projects(tx)
		for _, id := range ids {
			p, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if !p.Allow {
				return fmt.Errorf("%w: project %d does not accept requests", common.ErrorForbidden, id)
			}
			if err := repo.IncrementOrders(ctx, id); err != nil {
				return err
			}

			msg := notify.Message{
				Kind:      notify.KindNewRequest,
				Project:   p.Name,
				Requester: requester.FullName,
				Note:      note,
			}
			if _, err := s.composer.Notify(ctx, s.rm.Notifications(tx), p.AuthorID, msg); err != nil {
				return err
			}
		}
		return nil
	})
}
