package poller

import "strings"

// Key names one cached query.
type Key string

const (
	JobsKey     Key = "jobs"
	SettingsKey Key = "settings"

	eventsPrefix     = "events:"
	transcriptPrefix = "transcript:"
)

func EventsKey(jobID string) Key {
	return Key(eventsPrefix + jobID)
}

func TranscriptKey(jobID string) Key {
	return Key(transcriptPrefix + jobID)
}

// JobID returns the job a per-job key belongs to.
func (k Key) JobID() (string, bool) {
	s := string(k)
	switch {
	case strings.HasPrefix(s, eventsPrefix):
		return strings.TrimPrefix(s, eventsPrefix), true
	case strings.HasPrefix(s, transcriptPrefix):
		return strings.TrimPrefix(s, transcriptPrefix), true
	default:
		return "", false
	}
}

func (k Key) String() string {
	return string(k)
}
