package selection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
)

// State holds the user's job selection and the compose workflow. It is
// independent of polling; Reconcile re-derives selection validity whenever a
// fresh jobs list arrives.
type State struct {
	mu sync.RWMutex

	selectedJobID string

	url              string
	previewedURL     string
	formats          []jobs.FormatOption
	selectedFormatID string
	previewMeta      *PreviewMeta
	preview          RequestState
	submit           RequestState
	removeErr        *RemoveError

	previewSeq      uint64
	previewInFlight bool

	subsMu  sync.RWMutex
	subs    map[int]func()
	nextSub int
}

func New() *State {
	return &State{
		selectedFormatID: DefaultFormatID,
		preview:          RequestState{Status: RequestIdle},
		submit:           RequestState{Status: RequestIdle},
		subs:             make(map[int]func()),
	}
}

// Snapshot returns a copy safe to read without locking.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SelectedJobID:    s.selectedJobID,
		URL:              s.url,
		PreviewedURL:     s.previewedURL,
		Formats:          append([]jobs.FormatOption(nil), s.formats...),
		SelectedFormatID: s.selectedFormatID,
		Preview:          s.preview,
		Submit:           s.submit,
		Phase:            s.phaseLocked(),
	}
	if s.previewMeta != nil {
		meta := *s.previewMeta
		snap.PreviewMeta = &meta
	}
	if s.removeErr != nil {
		removeErr := *s.removeErr
		snap.RemoveError = &removeErr
	}
	return snap
}

func (s *State) phaseLocked() Phase {
	switch {
	case s.previewInFlight:
		return PhasePreviewing
	case s.previewedURL != "":
		return PhasePreviewed
	default:
		return PhaseIdle
	}
}

func (s *State) SelectedJobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedJobID
}

func (s *State) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// Select makes jobID the sticky selection.
func (s *State) Select(jobID string) {
	s.mutate(func() bool {
		if s.selectedJobID == jobID {
			return false
		}
		s.selectedJobID = jobID
		return true
	})
}

func (s *State) ClearSelection() {
	s.Select("")
}

// Reconcile drops the selection when the selected job is no longer listed.
// It reports whether the selection changed.
func (s *State) Reconcile(list []jobs.Job) bool {
	return s.mutate(func() bool {
		if s.selectedJobID == "" {
			return false
		}
		for _, job := range list {
			if job.ID == s.selectedJobID {
				return false
			}
		}
		s.selectedJobID = ""
		return true
	})
}

// SetURL updates the typed URL. Any edit away from the previewed URL
// discards the preview. It reports whether a preview was discarded.
func (s *State) SetURL(u string) bool {
	var invalidated bool
	s.mutate(func() bool {
		if s.url == u {
			return false
		}
		s.url = u
		if s.previewedURL != "" && s.previewedURL != u {
			s.resetPreviewLocked()
			invalidated = true
		}
		return true
	})
	return invalidated
}

func (s *State) resetPreviewLocked() {
	s.previewedURL = ""
	s.formats = nil
	s.selectedFormatID = DefaultFormatID
	s.previewMeta = nil
	s.preview = RequestState{Status: RequestIdle}
}

// BeginPreview marks a preview of the current URL as in flight.
func (s *State) BeginPreview() (PreviewTicket, bool) {
	var ticket PreviewTicket
	ok := s.mutate(func() bool {
		target := strings.TrimSpace(s.url)
		if target == "" {
			return false
		}
		s.previewSeq++
		s.previewInFlight = true
		s.preview = RequestState{Status: RequestLoading}
		ticket = PreviewTicket{URL: target, seq: s.previewSeq}
		return true
	})
	return ticket, ok
}

// CompletePreview applies a preview result. A result for a URL the user has
// since edited away from is discarded.
func (s *State) CompletePreview(ticket PreviewTicket, preview *jobs.Preview) bool {
	var applied bool
	s.mutate(func() bool {
		if ticket.seq != s.previewSeq {
			return false
		}
		s.previewInFlight = false
		if strings.TrimSpace(s.url) != ticket.URL || preview == nil {
			s.resetPreviewLocked()
			return true
		}
		s.previewedURL = ticket.URL
		s.formats = append([]jobs.FormatOption(nil), preview.Formats...)
		s.previewMeta = &PreviewMeta{
			Title:    preview.Title,
			Uploader: preview.Uploader,
			Duration: preview.Duration,
		}
		if !s.hasFormatLocked(s.selectedFormatID) {
			s.selectedFormatID = DefaultFormatID
		}
		s.preview = RequestState{Status: RequestSuccess}
		applied = true
		return true
	})
	return applied
}

// FailPreview records a preview error. Any previous preview stays visible.
func (s *State) FailPreview(ticket PreviewTicket, message string) {
	s.mutate(func() bool {
		if ticket.seq != s.previewSeq {
			return false
		}
		s.previewInFlight = false
		s.preview = RequestState{Status: RequestError, Message: message}
		return true
	})
}

// SelectFormat chooses a previewed format, or DefaultFormatID.
func (s *State) SelectFormat(formatID string) error {
	var err error
	s.mutate(func() bool {
		if formatID != DefaultFormatID && !s.hasFormatLocked(formatID) {
			err = fmt.Errorf("format %q is not in the current preview", formatID)
			return false
		}
		if s.selectedFormatID == formatID {
			return false
		}
		s.selectedFormatID = formatID
		return true
	})
	return err
}

func (s *State) hasFormatLocked(formatID string) bool {
	if formatID == DefaultFormatID {
		return true
	}
	for _, f := range s.formats {
		if f.FormatID == formatID {
			return true
		}
	}
	return false
}

// SubmissionFormat is the explicit format to send with a submission, or nil
// when the server default applies.
func (s *State) SubmissionFormat() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.previewedURL == "" || s.selectedFormatID == DefaultFormatID {
		return nil
	}
	id := s.selectedFormatID
	return &id
}

func (s *State) BeginSubmit() {
	s.mutate(func() bool {
		s.submit = RequestState{Status: RequestLoading}
		return true
	})
}

// CompleteSubmit resets the compose session after a successful submission.
func (s *State) CompleteSubmit(message string) {
	s.mutate(func() bool {
		s.url = ""
		s.resetPreviewLocked()
		s.previewInFlight = false
		s.previewSeq++
		s.submit = RequestState{Status: RequestSuccess, Message: message}
		return true
	})
}

// FailSubmit records a submission error; preview state is untouched so the
// user can retry directly.
func (s *State) FailSubmit(message string) {
	s.mutate(func() bool {
		s.submit = RequestState{Status: RequestError, Message: message}
		return true
	})
}

// CompleteRemove clears the selection if it pointed at the removed job.
func (s *State) CompleteRemove(jobID string) {
	s.mutate(func() bool {
		changed := false
		if s.selectedJobID == jobID {
			s.selectedJobID = ""
			changed = true
		}
		if s.removeErr != nil {
			s.removeErr = nil
			changed = true
		}
		return changed
	})
}

func (s *State) FailRemove(jobID, message string) {
	s.mutate(func() bool {
		s.removeErr = &RemoveError{JobID: jobID, Message: message}
		return true
	})
}

// Restore seeds selection and draft URL, e.g. from a saved session.
func (s *State) Restore(selectedJobID, url string) {
	s.mutate(func() bool {
		s.selectedJobID = selectedJobID
		s.url = url
		return true
	})
}

// Subscribe registers fn to run after every state change.
func (s *State) Subscribe(fn func()) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *State) mutate(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return changed
}

func (s *State) notify() {
	s.subsMu.RLock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
