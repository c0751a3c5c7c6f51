package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := NewCache(context.Background())
	t.Cleanup(c.Close)
	return c
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not settle")
	}
}

func TestCache_AcquireFetchesImmediately(t *testing.T) {
	c := newTestCache(t)

	release := c.Acquire(JobsKey, func(context.Context) (any, error) {
		return "jobs-v1", nil
	}, 0)
	defer release()

	require.Eventually(t, func() bool {
		return c.Get(JobsKey).HasData
	}, time.Second, 5*time.Millisecond)

	snap := c.Get(JobsKey)
	got, ok := Value[string](snap)
	require.True(t, ok)
	assert.Equal(t, "jobs-v1", got)
	assert.NoError(t, snap.Err)
	assert.False(t, snap.IsLoading)
}

func TestCache_ReadyWaitsForAcquireFetch(t *testing.T) {
	c := newTestCache(t)

	var calls atomic.Int32
	release := c.Acquire(JobsKey, func(context.Context) (any, error) {
		calls.Add(1)
		return "jobs", nil
	}, 0)
	defer release()

	waitDone(t, c.Ready(JobsKey))
	assert.True(t, c.Get(JobsKey).HasData)

	// A settled acquire fetch is not repeated by waiting again.
	waitDone(t, c.Ready(JobsKey))
	assert.Equal(t, int32(1), calls.Load())

	waitDone(t, c.Ready(Key("unknown")))
}

func TestCache_RefreshDeduplicatesInFlight(t *testing.T) {
	c := newTestCache(t)

	var calls atomic.Int32
	gate := make(chan struct{})
	release := c.Acquire(SettingsKey, func(context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return "settings", nil
	}, 0)
	defer release()

	// Acquire already started one request; these join it.
	first := c.Refresh(SettingsKey)
	second := c.Refresh(SettingsKey)

	require.Eventually(t, func() bool {
		return c.Get(SettingsKey).IsLoading
	}, time.Second, 5*time.Millisecond)

	close(gate)
	waitDone(t, first)
	waitDone(t, second)

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, c.Get(SettingsKey).HasData)
}

func TestCache_NewerIssueWinsOverLateOlderResponse(t *testing.T) {
	c := newTestCache(t)

	var mu sync.Mutex
	gates := map[int]chan struct{}{}
	var n int
	fetcher := func(context.Context) (any, error) {
		mu.Lock()
		n++
		call := n
		gate, ok := gates[call]
		mu.Unlock()
		if ok {
			<-gate
		}
		return call, nil
	}

	c.mu.Lock()
	c.entries[JobsKey] = &entry{fetcher: fetcher}
	c.mu.Unlock()

	gates[1] = make(chan struct{})
	gates[2] = make(chan struct{})

	older := c.Revalidate(JobsKey)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return n == 1
	}, time.Second, 5*time.Millisecond)
	newer := c.Revalidate(JobsKey)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return n == 2
	}, time.Second, 5*time.Millisecond)

	close(gates[2])
	waitDone(t, newer)
	got, _ := Value[int](c.Get(JobsKey))
	assert.Equal(t, 2, got)

	close(gates[1])
	waitDone(t, older)
	got, _ = Value[int](c.Get(JobsKey))
	assert.Equal(t, 2, got, "late response of the older request must be dropped")
	assert.False(t, c.Get(JobsKey).IsValidating)
}

func TestCache_FailedFetchKeepsPreviousData(t *testing.T) {
	c := newTestCache(t)

	var fail atomic.Bool
	release := c.Acquire(JobsKey, func(context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("connection refused")
		}
		return "good", nil
	}, 0)
	defer release()

	require.Eventually(t, func() bool { return c.Get(JobsKey).HasData }, time.Second, 5*time.Millisecond)

	fail.Store(true)
	waitDone(t, c.Revalidate(JobsKey))

	snap := c.Get(JobsKey)
	require.Error(t, snap.Err)
	got, ok := Value[string](snap)
	require.True(t, ok)
	assert.Equal(t, "good", got)

	fail.Store(false)
	waitDone(t, c.Revalidate(JobsKey))
	assert.NoError(t, c.Get(JobsKey).Err)
}

func TestCache_PollsOnlyWhileConsumed(t *testing.T) {
	c := newTestCache(t)

	var calls atomic.Int32
	fetcher := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}

	releaseA := c.Acquire(EventsKey("j1"), fetcher, 20*time.Millisecond)
	releaseB := c.Acquire(EventsKey("j1"), fetcher, 20*time.Millisecond)
	assert.Equal(t, 2, c.Consumers(EventsKey("j1")))
	assert.Equal(t, []Key{EventsKey("j1")}, c.Polled())

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	releaseA()
	releaseA()
	assert.Equal(t, 1, c.Consumers(EventsKey("j1")))
	assert.NotEmpty(t, c.Polled())

	releaseB()
	assert.Equal(t, 0, c.Consumers(EventsKey("j1")))
	assert.Empty(t, c.Polled())

	time.Sleep(50 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}

func TestCache_SetIntervalZeroDisablesTimer(t *testing.T) {
	c := newTestCache(t)

	release := c.Acquire(TranscriptKey("j1"), func(context.Context) (any, error) {
		return "text", nil
	}, time.Hour)
	defer release()

	info, ok := c.NextRefresh(TranscriptKey("j1"), time.Now())
	require.True(t, ok)
	assert.Equal(t, time.Hour, info.Interval)

	c.SetInterval(TranscriptKey("j1"), 0)
	assert.Empty(t, c.Polled())
	_, ok = c.NextRefresh(TranscriptKey("j1"), time.Now())
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), c.Interval(TranscriptKey("j1")))
}

func TestCache_SubscribeNotifiesOnApply(t *testing.T) {
	c := newTestCache(t)

	var notified atomic.Int32
	unsubscribe := c.Subscribe(func(key Key) {
		if key == SettingsKey {
			notified.Add(1)
		}
	})

	release := c.Acquire(SettingsKey, func(context.Context) (any, error) { return 1, nil }, 0)
	defer release()

	require.Eventually(t, func() bool { return notified.Load() >= 2 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	before := notified.Load()
	waitDone(t, c.Revalidate(SettingsKey))
	assert.Equal(t, before, notified.Load())
}

func TestCache_UnknownKeyIsNoop(t *testing.T) {
	c := newTestCache(t)
	waitDone(t, c.Refresh(Key("missing")))
	assert.False(t, c.Get(Key("missing")).HasData)
}

func TestKey_JobID(t *testing.T) {
	id, ok := EventsKey("abc").JobID()
	require.True(t, ok)
	assert.Equal(t, "abc", id)

	id, ok = TranscriptKey("xyz").JobID()
	require.True(t, ok)
	assert.Equal(t, "xyz", id)

	_, ok = JobsKey.JobID()
	assert.False(t, ok)
}
