package models

import "time"

// DefaultAccountPicture is shown until an account uploads its own picture.
const DefaultAccountPicture = "https://ikebana-app-users.s3-sa-east-1.amazonaws.com/default/default_user.png"

// Account is a registered user. Username and Email always hold the same
// value. Accounts created through the external identity provider carry
// ExternalID and never authenticate with a password.
type Account struct {
	ID         int64
	Username   string
	Email      string
	ExternalID *string

	FullName        string
	Phone           string
	City            string
	PersonalAddress string
	WorkAddress     string
	Location        string
	Bio             string
	Picture         string

	PasswordDigest string
	Confirmed      bool
	ConfirmedOn    *time.Time

	Partner   bool
	PartnerOn *time.Time
	CreatedOn time.Time
}

// IsExternal reports whether the account was provisioned by the identity
// provider.
func (a *Account) IsExternal() bool {
	return a.ExternalID != nil && *a.ExternalID != ""
}

// Contact is the set of fields a user supplies when asking to become a
// partner.
type Contact struct {
	City            string
	Phone           string
	PersonalAddress string
	WorkAddress     string
	Location        string
}

// AccountStats aggregates the projects an account authored.
type AccountStats struct {
	Projects    int
	TotalOrders int
}
