package poller

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/qtube-dashboard/pkg/icron"
	"github.com/MimeLyc/qtube-dashboard/pkg/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the automatic revalidation period of a polled key.
const DefaultInterval = 4 * time.Second

// Fetcher loads the current value of a key from the job store.
type Fetcher func(ctx context.Context) (any, error)

// Observer is notified after the snapshot of key changed.
type Observer func(key Key)

type entry struct {
	fetcher   Fetcher
	interval  time.Duration
	consumers int

	// issued is the highest sequence number handed out, applied the highest
	// one whose result was written. Results with seq <= applied are dropped.
	issued   uint64
	applied  uint64
	inflight int

	data      any
	hasData   bool
	err       error
	updatedAt time.Time

	// ready closes once the fetch issued by the first Acquire settles.
	ready <-chan struct{}

	scheduled bool
	cronID    cron.EntryID
}

// Cache keeps the last known snapshot of every registered key and
// revalidates keys that have at least one consumer on a fixed interval.
type Cache struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	cron    *cron.Cron

	subsMu  sync.RWMutex
	subs    map[int]Observer
	nextSub int

	closeOnce sync.Once
}

func NewCache(ctx context.Context) *Cache {
	ctx, cancel := context.WithCancel(ctx)
	c := &Cache{
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[Key]*entry),
		cron:    cron.New(),
		subs:    make(map[int]Observer),
	}
	c.cron.Start()
	return c
}

// Close stops all timers and waits for running timer callbacks.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		<-c.cron.Stop().Done()
		c.cancel()
	})
}

// Acquire registers a consumer of key. The first consumer arms the timer
// (when interval > 0) and triggers a fetch. The returned release func drops
// the consumer; the timer stops once no consumer remains.
func (c *Cache) Acquire(key Key, fetcher Fetcher, interval time.Duration) (release func()) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.fetcher = fetcher
	e.consumers++
	first := e.consumers == 1
	if first {
		e.interval = interval
		c.scheduleLocked(key, e)
	}
	c.mu.Unlock()

	if first {
		log.Debug("poller: acquired %s (interval %s)", key, interval)
		done := c.Refresh(key)
		c.mu.Lock()
		e.ready = done
		c.mu.Unlock()
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.release(key) })
	}
}

func (c *Cache) release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.consumers == 0 {
		return
	}
	e.consumers--
	if e.consumers == 0 {
		c.unscheduleLocked(e)
		log.Debug("poller: released %s", key)
	}
}

// Ready returns a channel that closes once the fetch triggered by the first
// Acquire of key has settled. It is closed already for unknown keys.
func (c *Cache) Ready(key Key) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.ready != nil {
		return e.ready
	}
	done := make(chan struct{})
	close(done)
	return done
}

// Consumers returns the number of active consumers of key.
func (c *Cache) Consumers(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.consumers
	}
	return 0
}

// SetInterval changes the polling period of key; 0 disables the timer.
func (c *Cache) SetInterval(key Key, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.interval == interval {
		return
	}
	e.interval = interval
	c.unscheduleLocked(e)
	c.scheduleLocked(key, e)
}

// Interval returns the current polling period of key.
func (c *Cache) Interval(key Key) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.interval
	}
	return 0
}

// Polled returns the keys that currently have an armed timer, sorted.
func (c *Cache) Polled() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make([]Key, 0, len(c.entries))
	for key, e := range c.entries {
		if e.scheduled {
			ret = append(ret, key)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// NextRefresh describes the timer of key relative to now.
func (c *Cache) NextRefresh(key Key, now time.Time) (icron.TriggerInfo, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || !e.scheduled {
		c.mu.Unlock()
		return icron.TriggerInfo{}, false
	}
	id := e.cronID
	c.mu.Unlock()

	entry := c.cron.Entry(id)
	if !entry.Valid() {
		return icron.TriggerInfo{}, false
	}
	return icron.GetTriggerInfo(entry, now), true
}

func (c *Cache) scheduleLocked(key Key, e *entry) {
	if e.scheduled || e.consumers == 0 || e.interval <= 0 {
		return
	}
	schedule, err := icron.Every(e.interval)
	if err != nil {
		log.Error("poller: schedule %s: %v", key, err)
		return
	}
	e.cronID = c.cron.Schedule(schedule, cron.FuncJob(func() { c.Refresh(key) }))
	e.scheduled = true
}

func (c *Cache) unscheduleLocked(e *entry) {
	if !e.scheduled {
		return
	}
	c.cron.Remove(e.cronID)
	e.scheduled = false
	e.cronID = 0
}

// Get returns the current snapshot of key.
func (c *Cache) Get(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key}
	}
	return Snapshot{
		Key:          key,
		Data:         e.data,
		HasData:      e.hasData,
		Err:          e.err,
		UpdatedAt:    e.updatedAt,
		IsLoading:    e.inflight > 0 && !e.hasData,
		IsValidating: e.inflight > 0,
		Seq:          e.applied,
	}
}

// Refresh fetches key unless a request for it is already in flight, in which
// case the caller joins that request. The returned channel closes once the
// request settles.
func (c *Cache) Refresh(key Key) <-chan struct{} {
	return c.fetch(key, false)
}

// Revalidate always issues a new request for key, even while an older one is
// in flight. The newer request wins regardless of completion order.
func (c *Cache) Revalidate(key Key) <-chan struct{} {
	return c.fetch(key, true)
}

func (c *Cache) fetch(key Key, force bool) <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.fetcher == nil || c.ctx.Err() != nil {
		c.mu.Unlock()
		close(done)
		return done
	}
	fetcher := e.fetcher
	e.issued++
	seq := e.issued

	// Forget and DoChan stay under c.mu so sequence numbers follow issue order.
	if force {
		c.group.Forget(string(key))
	}
	ch := c.group.DoChan(string(key), func() (interface{}, error) {
		c.begin(key)
		data, err := fetcher(c.ctx)
		c.apply(key, seq, data, err)
		return nil, nil
	})
	c.mu.Unlock()

	go func() {
		<-ch
		close(done)
	}()
	return done
}

func (c *Cache) begin(key Key) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.inflight++
	}
	c.mu.Unlock()
	c.notify(key)
}

func (c *Cache) apply(key Key, seq uint64, data any, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if e.inflight > 0 {
		e.inflight--
	}
	switch {
	case seq <= e.applied:
		log.Debug("poller: dropped stale response for %s (seq %d <= %d)", key, seq, e.applied)
	case err != nil:
		e.applied = seq
		e.err = err
		log.Debug("poller: fetch %s failed: %v", key, err)
	default:
		e.applied = seq
		e.data = data
		e.hasData = true
		e.err = nil
		e.updatedAt = time.Now()
	}
	c.mu.Unlock()
	c.notify(key)
}

// Subscribe registers an observer and returns its unsubscribe func.
func (c *Cache) Subscribe(fn Observer) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

func (c *Cache) notify(key Key) {
	c.subsMu.RLock()
	observers := make([]Observer, 0, len(c.subs))
	for _, fn := range c.subs {
		observers = append(observers, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range observers {
		fn(key)
	}
}
