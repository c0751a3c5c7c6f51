package jobs

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Status string

const (
	StatusQueued       Status = "queued"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCanceled     Status = "canceled"
)

// UnknownLabel is shown for status values outside the known set.
const UnknownLabel = "Unknown"

var knownStatuses = map[Status]int{
	StatusQueued:       0,
	StatusDownloading:  1,
	StatusDownloaded:   2,
	StatusTranscribing: 3,
	StatusCompleted:    4,
	StatusFailed:       5,
	StatusCanceled:     5,
}

// Known reports whether s is one of the statuses the job store emits.
func (s Status) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Terminal reports whether no further transitions can follow s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Active reports whether a worker is currently busy with the job.
func (s Status) Active() bool {
	return s == StatusDownloading || s == StatusTranscribing
}

// Label is the badge text for s.
func (s Status) Label() string {
	if !s.Known() {
		return UnknownLabel
	}
	return cases.Title(language.English).String(string(s))
}

// CanTransition reports whether the job store may move a job from s to next.
// Failure and cancellation are reachable from every non-terminal state; the
// happy path only moves forward.
func CanTransition(from, next Status) bool {
	if !from.Known() || !next.Known() || from.Terminal() {
		return false
	}
	if next == StatusFailed || next == StatusCanceled {
		return true
	}
	return knownStatuses[next] > knownStatuses[from]
}
