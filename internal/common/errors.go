// Package common defines shared constants and sentinel errors used across
// the Ikebana server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Account state errors.
	ErrorExternalAccount  = errors.New("account is managed by an external identity provider")
	ErrorNotConfirmed     = errors.New("account e-mail not confirmed")
	ErrorAlreadyConfirmed = errors.New("account e-mail already confirmed")
	ErrorNotPartner       = errors.New("account is not a partner")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
