package models

import "time"

// Notification is an in-app message addressed to one account.
type Notification struct {
	ID        int64
	AccountID int64
	Sender    string
	SentOn    time.Time
	Content   string
	IsRead    bool
}
