package domain

import "time"

// UserRecord is the authoritative form of a registered user.
// Handlers keep only the login string and always go back to the
// directory for current state.
type UserRecord struct {
	Login          string
	PasswordDigest string
	DisplayName    string
	LoggedIn       bool
	CreatedAt      time.Time
}
