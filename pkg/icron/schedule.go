package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// FixedInterval is a cron.Schedule firing every Interval after the reference
// time. Unlike cron.Every it keeps sub-second precision.
type FixedInterval struct {
	Interval time.Duration
}

var _ cron.Schedule = FixedInterval{}

func Every(interval time.Duration) (FixedInterval, error) {
	if interval <= 0 {
		return FixedInterval{}, fmt.Errorf("invalid interval: %s", interval)
	}
	return FixedInterval{Interval: interval}, nil
}

func (s FixedInterval) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

type TriggerInfo struct {
	Next     time.Time
	Last     time.Time
	Interval time.Duration

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo describes a cron entry relative to refTime.
func GetTriggerInfo(entry cron.Entry, refTime time.Time) TriggerInfo {
	info := TriggerInfo{
		Next: entry.Next,
		Last: entry.Prev,
	}
	if fixed, ok := entry.Schedule.(FixedInterval); ok {
		info.Interval = fixed.Interval
	}
	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	if !info.Next.IsZero() {
		info.TimeUntilNext = info.Next.Sub(refTime)
	}
	return info
}
