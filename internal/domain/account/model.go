package account

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile not found")

// Profile is the users/{uid} document. The Google token is held apart and
// never serialised to clients.
type Profile struct {
	UID               string    `json:"uid"`
	Email             string    `json:"email"`
	DisplayName       string    `json:"displayName"`
	CalendarConnected bool      `json:"calendarConnected"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
