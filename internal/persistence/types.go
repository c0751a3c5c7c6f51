package persistence

import "time"

// Session is the dashboard state that survives a restart: which job the
// operator was looking at and what they were typing.
type Session struct {
	ID            string
	SelectedJobID string
	DraftURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
