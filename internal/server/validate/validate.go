// Package validate checks user-supplied fields before they reach storage.
// Every failure wraps common.ErrorValidation.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sanguetsu/ikebana/internal/common"
)

const (
	MinPasswordLen    = 6
	MaxPasswordLen    = 128
	MaxFullNameLen    = 70
	MaxProjectNameLen = 120
)

func Registration(email, fullName, password string) error {
	return errors.Join(Email(email), FullName(fullName), Password(password))
}

func Password(password string) error {
	l := len(password)
	switch {
	case l == 0:
		return invalid("empty password")
	case l < MinPasswordLen:
		return invalid(fmt.Sprintf("password too short; min %d characters", MinPasswordLen))
	case l > MaxPasswordLen:
		return invalid(fmt.Sprintf("password too long; max %d characters", MaxPasswordLen))
	}
	return nil
}

// Email accepts a bare address only; display names are rejected so the value
// can double as the username.
func Email(email string) error {
	if email == "" {
		return invalid("empty email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("malformed email")
	}
	return nil
}

func FullName(name string) error {
	if l := len(strings.TrimSpace(name)); l == 0 {
		return invalid("empty full name")
	} else if l > MaxFullNameLen {
		return invalid(fmt.Sprintf("full name too long; max %d characters", MaxFullNameLen))
	}
	return nil
}

func ProjectName(name string) error {
	if l := len(strings.TrimSpace(name)); l == 0 {
		return invalid("empty project title")
	} else if l > MaxProjectNameLen {
		return invalid(fmt.Sprintf("project title too long; max %d characters", MaxProjectNameLen))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, msg)
}
