package services

import (
	"context"
	"time"

	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/server/auth"
	"github.com/sanguetsu/ikebana/internal/server/config"
	"github.com/sanguetsu/ikebana/internal/server/models"
	"github.com/sanguetsu/ikebana/internal/server/passhash"
	"github.com/sanguetsu/ikebana/internal/server/repositories/refreshtokens"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints session tokens. Outside this package tokens are only
// issued against a password; issueTrusted and trustedAccess serve flows that
// already proved ownership of the account.
type TokenIssuer struct {
	secret          []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{
		secret:          []byte(cfg.SecretKey),
		accessValidity:  cfg.AccessTokenValidityDuration,
		refreshValidity: cfg.RefreshTokenValidityDuration,
	}
}

// IssueForCredentials verifies password against the account digest and
// mints a token pair. A nil account or a mismatch yields
// common.ErrorUnauthorized.
func (t *TokenIssuer) IssueForCredentials(ctx context.Context, refresh refreshtokens.Repository, acc *models.Account, password string) (*TokenPair, error) {
	if acc == nil || !passhash.Verify(acc.PasswordDigest, password) {
		return nil, common.ErrorUnauthorized
	}
	return t.issueTrusted(ctx, refresh, acc)
}

// Authenticate validates an access token and returns its identity.
func (t *TokenIssuer) Authenticate(token string) (string, error) {
	if token == "" {
		return "", common.ErrorUnauthorized
	}
	return auth.ParseToken(token, auth.KindAccess, t.secret)
}

func (t *TokenIssuer) issueTrusted(ctx context.Context, refresh refreshtokens.Repository, acc *models.Account) (*TokenPair, error) {
	access, err := t.trustedAccess(acc)
	if err != nil {
		return nil, err
	}

	rt, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := refresh.Create(ctx, acc.ID, rt, t.refreshValidity); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: rt}, nil
}

func (t *TokenIssuer) trustedAccess(acc *models.Account) (string, error) {
	tok, err := auth.GenerateToken(acc.Username, auth.KindAccess, t.secret, t.accessValidity)
	if err != nil {
		return "", common.ErrorInternal
	}
	return tok, nil
}
