package live

import "time"

// Event is the envelope of every message pushed to browsers.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

const (
	EventWelcome        = "welcome"
	EventArtistsUpdated = "artists.updated"
)
