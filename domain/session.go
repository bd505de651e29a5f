package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session binds an authenticated login to one live connection.
// At most one session exists per login at any time.
type Session struct {
	Login         string
	ConnectionID  uuid.UUID
	EstablishedAt time.Time
}
