package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the engine's read-only mirror of the identity collaborator's user
// record: just enough to authorize pings and answer location lookups.
type User struct {
	ID                     uuid.UUID `json:"id"`
	Username               string    `json:"username"`
	LocationSharingEnabled bool      `json:"location_sharing_enabled"`
	CreatedAt              time.Time `json:"created_at"`
}

// Location is a user's last reported position. Only meaningful while the
// user has location sharing enabled.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	AsOf      time.Time `json:"as_of"`
}
