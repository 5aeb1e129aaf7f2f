package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/dbx"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/identity"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/passhash"
	"github.com/sanguetsu/ikebana/internal/server/repositories/repomanager"
)

// IdentityService signs users in through the external identity provider and
// provisions a local account the first time an external subject shows up.
type IdentityService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	tokens   *TokenIssuer
	provider identity.Provider
	states   identity.StateStore
	log      logging.Logger
}

// NewIdentityService builds the service. states may be nil, in which case
// the state parameter is generated but not checked on the way back.
func NewIdentityService(db *sql.DB, rm repomanager.RepositoryManager, tokens *TokenIssuer,
	provider identity.Provider, states identity.StateStore, log logging.Logger) *IdentityService {
	return &IdentityService{
		db:       db,
		rm:       rm,
		tokens:   tokens,
		provider: provider,
		states:   states,
		log:      log.With("module", "identity"),
	}
}

// Begin returns the provider URL the client should be redirected to.
func (s *IdentityService) Begin(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if s.states != nil {
		var err error
		if state, err = s.states.Issue(ctx); err != nil {
			return "", err
		}
	}
	return s.provider.AuthCodeURL(ctx, state)
}

// Complete finishes the authorization-code flow and returns a token pair
// for the matching local account. identity.ErrEmailNotVerified is returned
// unchanged so callers can report it softly.
func (s *IdentityService) Complete(ctx context.Context, code, state string) (*TokenPair, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", common.ErrorValidation)
	}
	if s.states != nil {
		if err := s.states.Consume(ctx, state); err != nil {
			if errors.Is(err, identity.ErrInvalidState) {
				return nil, fmt.Errorf("%w: %w", common.ErrorValidation, err)
			}
			return nil, err
		}
	}

	claims, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		acc, err := s.findOrProvision(ctx, tx, claims)
		if err != nil {
			return err
		}
		pair, err = s.tokens.issueTrusted(ctx, s.rm.RefreshTokens(tx), acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *IdentityService) findOrProvision(ctx context.Context, tx dbx.DBTX, claims *identity.Claims) (*models.Account, error) {
	repo := s.rm.Accounts(tx)

	acc, err := repo.GetByExternalID(ctx, claims.Subject)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	email := normalizeEmail(claims.Email)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email belongs to a local account", common.ErrorAlreadyExists)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	// External accounts never log in with a password; the stored digest is
	// of a random secret nobody knows.
	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	digest, err := passhash.Hash(secret)
	if err != nil {
		return nil, common.ErrorInternal
	}

	fullName := strings.TrimSpace(claims.GivenName)
	if fullName == "" {
		fullName = strings.TrimSpace(claims.Name)
	}
	subject := claims.Subject
	now := time.Now()

	acc, err = repo.Create(ctx, &models.Account{
		Username:       email,
		Email:          email,
		ExternalID:     &subject,
		FullName:       fullName,
		Picture:        claims.Picture,
		PasswordDigest: digest,
		Confirmed:      true,
		ConfirmedOn:    &now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "external account provisioned", "account_id", acc.ID)
	return acc, nil
}
