package poller

import "time"

// Snapshot is the consumer view of one key: the last successfully fetched
// data plus loading and error flags. A failed fetch never clears Data.
type Snapshot struct {
	Key       Key
	Data      any
	HasData   bool
	Err       error
	UpdatedAt time.Time

	// IsLoading is true while a request is in flight and nothing has been
	// fetched yet; IsValidating is true whenever a request is in flight.
	IsLoading    bool
	IsValidating bool

	// Seq is the issue sequence number of the applied response.
	Seq uint64
}

// Value returns the snapshot data as T.
func Value[T any](s Snapshot) (T, bool) {
	var zero T
	if !s.HasData {
		return zero, false
	}
	v, ok := s.Data.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
