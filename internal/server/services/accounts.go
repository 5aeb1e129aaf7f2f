package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/mailer"
	"github.com/sanguetsu/ikebana/internal/server/media"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/notify"
	"github.com/sanguetsu/ikebana/internal/server/passhash"
	"github.com/sanguetsu/ikebana/internal/server/repositories/repomanager"
	"github.com/sanguetsu/ikebana/internal/server/validate"
)

// Profile is an account together with what is derived from its projects.
// Notifications is nil for public projections.
type Profile struct {
	Account       *models.Account
	Stats         models.AccountStats
	Notifications []models.Notification
}

// AccountService implements registration, confirmation, login, password
// recovery, partner promotion and profile management.
type AccountService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	tokens   *TokenIssuer
	composer *notify.Composer
	media    MediaStore
	mail     mailer.Mailer
	log      logging.Logger
	now      func() time.Time
}

func NewAccountService(db *sql.DB, rm repomanager.RepositoryManager, tokens *TokenIssuer, composer *notify.Composer,
	media MediaStore, mail mailer.Mailer, log logging.Logger) *AccountService {
	return &AccountService{
		db:       db,
		rm:       rm,
		tokens:   tokens,
		composer: composer,
		media:    media,
		mail:     mail,
		log:      log.With("module", "accounts"),
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unconfirmed account and mails it a confirmation link.
// The insert is rolled back when the mail cannot be sent.
func (s *AccountService) Register(ctx context.Context, email, fullName, password string) (*models.Account, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if err := validate.Registration(email, fullName, password); err != nil {
		return nil, err
	}

	digest, err := passhash.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var created *models.Account
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.rm.Accounts(tx).Create(ctx, &models.Account{
			Username:       email,
			Email:          email,
			FullName:       fullName,
			PasswordDigest: digest,
		})
		if err != nil {
			return err
		}

		token, err := s.tokens.trustedAccess(acc)
		if err != nil {
			return err
		}
		if err := s.mail.SendConfirmation(ctx, acc.Email, token); err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account registered", "account_id", created.ID)
	return created, nil
}

// Login checks account state before the password: external accounts and
// unconfirmed accounts are refused with their own errors.
func (s *AccountService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)

	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.rm.Accounts(tx).GetByUsername(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		if acc.IsExternal() {
			return common.ErrorExternalAccount
		}
		if !acc.Confirmed {
			return common.ErrorNotConfirmed
		}

		pair, err = s.tokens.IssueForCredentials(ctx, s.rm.RefreshTokens(tx), acc, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RecoverPassword mails a reset link to a local account.
func (s *AccountService) RecoverPassword(ctx context.Context, email string) error {
	acc, err := s.rm.Accounts(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorForbidden
		}
		return err
	}
	if acc.IsExternal() {
		return common.ErrorForbidden
	}

	token, err := s.tokens.trustedAccess(acc)
	if err != nil {
		return err
	}
	return s.mail.SendPasswordReset(ctx, acc.Email, token)
}

// ResetPassword replaces the password of the token holder without asking
// for the old one.
func (s *AccountService) ResetPassword(ctx context.Context, identity, newPassword string) error {
	if err := validate.Password(newPassword); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Accounts(tx)
		acc, err := currentAccount(ctx, repo, identity)
		if err != nil {
			return err
		}
		if acc.IsExternal() {
			return common.ErrorExternalAccount
		}
		return s.setPassword(ctx, tx, acc, newPassword)
	})
}

// Verify confirms the account e-mail. Confirmation is one-way.
func (s *AccountService) Verify(ctx context.Context, identity string) (*models.Account, error) {
	var acc *models.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Accounts(tx)
		var err error
		acc, err = currentAccount(ctx, repo, identity)
		if err != nil {
			return err
		}
		if acc.Confirmed {
			return common.ErrorAlreadyConfirmed
		}

		now := s.now()
		acc.Confirmed = true
		acc.ConfirmedOn = &now
		if err := repo.Update(ctx, acc); err != nil {
			return err
		}

		_, err = s.composer.Notify(ctx, s.rm.Notifications(tx), acc.ID, notify.Message{Kind: notify.KindWelcome})
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// BecomePartner stores contact data and promotes the account on its first
// call. It reports whether this call did the promotion.
func (s *AccountService) BecomePartner(ctx context.Context, identity string, c models.Contact) (bool, error) {
	promoted := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Accounts(tx)
		acc, err := currentAccount(ctx, repo, identity)
		if err != nil {
			return err
		}

		acc.City = c.City
		acc.Phone = c.Phone
		acc.PersonalAddress = c.PersonalAddress
		acc.WorkAddress = c.WorkAddress
		acc.Location = c.Location

		if acc.Partner {
			return repo.Update(ctx, acc)
		}

		now := s.now()
		acc.Partner = true
		acc.PartnerOn = &now
		if err := repo.Update(ctx, acc); err != nil {
			return err
		}
		if _, err := s.composer.Notify(ctx, s.rm.Notifications(tx), acc.ID, notify.Message{Kind: notify.KindTurnedMember}); err != nil {
			return err
		}
		if err := s.mail.SendPartnerWelcome(ctx, acc.Email); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return promoted, nil
}

// Profile returns the caller's private projection.
func (s *AccountService) Profile(ctx context.Context, identity string) (*Profile, error) {
	acc, err := currentAccount(ctx, s.rm.Accounts(s.db), identity)
	if err != nil {
		return nil, err
	}

	stats, err := s.rm.Projects(s.db).StatsByAuthor(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	notes, err := s.rm.Notifications(s.db).ListByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{Account: acc, Stats: stats, Notifications: notes}, nil
}

// UpdateProfile replaces full name and bio and, when picture is given,
// uploads it and points the account at the new URL.
func (s *AccountService) UpdateProfile(ctx context.Context, identity, fullName, bio string, picture *media.Upload) error {
	fullName = strings.TrimSpace(fullName)
	if err := validate.FullName(fullName); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Accounts(tx)
		acc, err := currentAccount(ctx, repo, identity)
		if err != nil {
			return err
		}

		acc.FullName = fullName
		acc.Bio = bio
		if picture != nil {
			url, err := s.media.StoreAccountPicture(ctx, acc.ID, *picture)
			if err != nil {
				return err
			}
			acc.Picture = url
		}
		return repo.Update(ctx, acc)
	})
}

// ChangePassword requires the current password and is unavailable to
// external accounts.
func (s *AccountService) ChangePassword(ctx context.Context, identity, oldPassword, newPassword string) error {
	if err := validate.Password(newPassword); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := currentAccount(ctx, s.rm.Accounts(tx), identity)
		if err != nil {
			return err
		}
		if acc.IsExternal() {
			return common.ErrorExternalAccount
		}
		if !passhash.Verify(acc.PasswordDigest, oldPassword) {
			return common.ErrorUnauthorized
		}
		return s.setPassword(ctx, tx, acc, newPassword)
	})
}

func (s *AccountService) setPassword(ctx context.Context, tx dbx.DBTX, acc *models.Account, password string) error {
	digest, err := passhash.Hash(password)
	if err != nil {
		return common.ErrorInternal
	}
	acc.PasswordDigest = digest
	return s.rm.Accounts(tx).Update(ctx, acc)
}

// ClearNotifications deletes every notification of the caller.
func (s *AccountService) ClearNotifications(ctx context.Context, identity string) (int64, error) {
	var n int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := currentAccount(ctx, s.rm.Accounts(tx), identity)
		if err != nil {
			return err
		}
		n, err = s.rm.Notifications(tx).DeleteByAccount(ctx, acc.ID)
		return err
	})
	return n, err
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (s *AccountService) MarkNotificationRead(ctx context.Context, identity string, notificationID int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := currentAccount(ctx, s.rm.Accounts(tx), identity)
		if err != nil {
			return err
		}
		return s.rm.Notifications(tx).MarkRead(ctx, notificationID, acc.ID)
	})
}

// Refresh trades a stored, unexpired refresh token for a new access token.
// The refresh token itself stays valid until it expires; an expired one is
// removed when presented.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.ErrorUnauthorized
	}

	tokens := s.rm.RefreshTokens(s.db)
	rt, err := tokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", err
	}
	if rt.Expires.Before(s.now()) {
		if err := tokens.Delete(ctx, refreshToken); err != nil {
			s.log.Warn(ctx, "expired refresh token not removed", "account_id", rt.AccountID, "error", err)
		}
		return "", common.ErrRefreshTokenExpired
	}

	acc, err := s.rm.Accounts(s.db).GetByID(ctx, rt.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", err
	}
	return s.tokens.trustedAccess(acc)
}

// AuthorPublic returns the public projection of the author of projectID.
func (s *AccountService) AuthorPublic(ctx context.Context, projectID int64) (*Profile, error) {
	p, err := s.rm.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	acc, err := s.rm.Accounts(s.db).GetByID(ctx, p.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("author of project %d: %w", projectID, err)
	}
	stats, err := s.rm.Projects(s.db).StatsByAuthor(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{Account: acc, Stats: stats}, nil
}
