package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/persistence"
	"github.com/MimeLyc/qtube-dashboard/internal/selection"
	"github.com/MimeLyc/qtube-dashboard/pkg/log"
)

const sessionSaveTimeout = 2 * time.Second

// SessionStore persists the selected job and draft URL across restarts.
// *persistence.SQLiteStore implements it.
type SessionStore interface {
	NewSession(ctx context.Context) (persistence.Session, error)
	LatestSession(ctx context.Context) (persistence.Session, bool, error)
	SaveSession(ctx context.Context, session persistence.Session) error
}

// WithSessionStore restores the latest session on Start and saves every
// selection or draft URL change.
func WithSessionStore(store SessionStore) Option {
	return func(d *Dashboard) {
		if store != nil {
			d.session = &sessionSync{store: store}
		}
	}
}

type sessionSync struct {
	store SessionStore

	mu      sync.Mutex
	current persistence.Session
}

func (s *sessionSync) restore(ctx context.Context, sel *selection.State) error {
	session, ok, err := s.store.LatestSession(ctx)
	if err != nil {
		return fmt.Errorf("load latest session: %w", err)
	}
	if !ok {
		session, err = s.store.NewSession(ctx)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	if session.SelectedJobID != "" || session.DraftURL != "" {
		sel.Restore(session.SelectedJobID, session.DraftURL)
		log.Info("dashboard: restored session %s", session.ID)
	}
	return nil
}

// SessionID returns the id of the active session, or "".
func (d *Dashboard) SessionID() string {
	if d.session == nil {
		return ""
	}
	d.session.mu.Lock()
	defer d.session.mu.Unlock()
	return d.session.current.ID
}

func (s *sessionSync) save(selectedJobID, draftURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.ID == "" {
		return
	}
	if s.current.SelectedJobID == selectedJobID && s.current.DraftURL == draftURL {
		return
	}
	next := s.current
	next.SelectedJobID = selectedJobID
	next.DraftURL = draftURL
	next.UpdatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), sessionSaveTimeout)
	defer cancel()
	if err := s.store.SaveSession(ctx, next); err != nil {
		log.Warn("dashboard: save session %s: %v", next.ID, err)
		return
	}
	s.current = next
}
