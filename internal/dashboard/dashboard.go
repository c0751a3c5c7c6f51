package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/poller"
	"github.com/MimeLyc/qtube-dashboard/internal/remote"
	"github.com/MimeLyc/qtube-dashboard/internal/selection"
	"github.com/MimeLyc/qtube-dashboard/internal/view"
	"github.com/MimeLyc/qtube-dashboard/pkg/log"
	"golang.org/x/sync/errgroup"
)

// JobStore is the remote job store as seen by the dashboard.
// *remote.Client implements it.
type JobStore interface {
	BaseURL() string
	ListJobs(ctx context.Context, limit int) (*jobs.JobList, error)
	ListEvents(ctx context.Context, jobID string) ([]jobs.Event, error)
	GetSettings(ctx context.Context) (*jobs.Settings, error)
	PreviewFormats(ctx context.Context, videoURL string) (*jobs.Preview, error)
	CreateJobs(ctx context.Context, videoURL string, formatID *string) (*jobs.CreateResponse, error)
	DeleteJob(ctx context.Context, jobID string) (*jobs.DeleteResponse, error)
	GetTranscript(ctx context.Context, jobID string) (string, error)
}

// ConfirmFunc asks the operator to confirm removing a job.
type ConfirmFunc func(job jobs.Job) bool

// Dashboard keeps a local view of the job store consistent with the server.
// It owns the polling cache and the selection state and recomputes the view
// model whenever either changes.
type Dashboard struct {
	store JobStore
	cache *poller.Cache
	sel   *selection.State

	mu        sync.Mutex
	refresh   time.Duration
	jobsLimit int
	started   bool
	releases  []func()
	unsubs    []func()

	// detail keys follow the effective selected job
	detailID          string
	detailCompleted   bool
	releaseEvents     func()
	releaseTranscript func()

	session *sessionSync

	subsMu  sync.RWMutex
	subs    map[int]func()
	nextSub int
}

type Option func(*Dashboard)

func WithRefreshInterval(d time.Duration) Option {
	return func(db *Dashboard) {
		if d > 0 {
			db.refresh = d
		}
	}
}

func WithJobsLimit(limit int) Option {
	return func(db *Dashboard) {
		if limit > 0 {
			db.jobsLimit = limit
		}
	}
}

func New(ctx context.Context, store JobStore, opts ...Option) *Dashboard {
	d := &Dashboard{
		store:     store,
		cache:     poller.NewCache(ctx),
		sel:       selection.New(),
		refresh:   poller.DefaultInterval,
		jobsLimit: remote.DefaultJobsLimit,
		subs:      make(map[int]func()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cache exposes the polling cache for read-only inspection.
func (d *Dashboard) Cache() *poller.Cache {
	return d.cache
}

func (d *Dashboard) Selection() *selection.State {
	return d.sel
}

// Start registers the jobs and settings keys and waits until both have been
// fetched once. Fetch failures are recorded in the cache and not returned.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if d.session != nil {
		if err := d.session.restore(ctx, d.sel); err != nil {
			log.Warn("dashboard: restore session: %v", err)
		}
	}

	d.mu.Lock()
	d.started = true
	refresh := d.refresh
	d.unsubs = append(d.unsubs,
		d.cache.Subscribe(d.onCacheChange),
		d.sel.Subscribe(d.onSelectionChange),
	)
	d.releases = append(d.releases,
		d.cache.Acquire(poller.JobsKey, d.fetchJobs, refresh),
		d.cache.Acquire(poller.SettingsKey, d.fetchSettings, refresh),
	)
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range []poller.Key{poller.JobsKey, poller.SettingsKey} {
		done := d.cache.Ready(key)
		g.Go(func() error {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

// Close releases every key and stops all timers.
func (d *Dashboard) Close() {
	d.mu.Lock()
	unsubs := d.unsubs
	releases := d.releases
	d.unsubs, d.releases = nil, nil
	if d.releaseEvents != nil {
		releases = append(releases, d.releaseEvents)
		d.releaseEvents = nil
	}
	if d.releaseTranscript != nil {
		releases = append(releases, d.releaseTranscript)
		d.releaseTranscript = nil
	}
	d.detailID = ""
	d.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	for _, fn := range releases {
		fn()
	}
	d.cache.Close()
}

func (d *Dashboard) fetchJobs(ctx context.Context) (any, error) {
	d.mu.Lock()
	limit := d.jobsLimit
	d.mu.Unlock()

	list, err := d.store.ListJobs(ctx, limit)
	if err != nil {
		log.Warn("dashboard: jobs refresh failed: %v", err)
		return nil, WrapError(err, ErrTransientFetch, "")
	}
	for _, job := range list.Jobs {
		if !job.Status.Known() {
			log.Warn("dashboard: %v", NewError(ErrUnknownStatus, "unknown job status").
				WithContext("job", job.ID).
				WithContext("status", string(job.Status)))
		}
	}
	return list, nil
}

func (d *Dashboard) fetchSettings(ctx context.Context) (any, error) {
	settings, err := d.store.GetSettings(ctx)
	if err != nil {
		log.Warn("dashboard: settings refresh failed: %v", err)
		return nil, WrapError(err, ErrTransientFetch, "")
	}
	return settings, nil
}

func (d *Dashboard) eventsFetcher(jobID string) poller.Fetcher {
	return func(ctx context.Context) (any, error) {
		events, err := d.store.ListEvents(ctx, jobID)
		if err != nil {
			log.Warn("dashboard: events refresh for %s failed: %v", jobID, err)
			return nil, WrapError(err, ErrTransientFetch, "").WithContext("job", jobID)
		}
		return events, nil
	}
}

func (d *Dashboard) transcriptFetcher(jobID string) poller.Fetcher {
	return func(ctx context.Context) (any, error) {
		text, err := d.store.GetTranscript(ctx, jobID)
		if err != nil {
			if remote.IsNotFound(err) {
				return nil, WrapError(err, ErrNotYetAvailable, "Transcript not available yet.")
			}
			log.Warn("dashboard: transcript fetch for %s failed: %v", jobID, err)
			return nil, WrapError(err, ErrTransientFetch, UserMessage(err)).WithContext("job", jobID)
		}
		return transcript{text: text, language: view.DetectLanguage(text)}, nil
	}
}

// transcript is the cached value of a transcript key.
type transcript struct {
	text     string
	language string
}

func (d *Dashboard) jobs() []jobs.Job {
	list, ok := poller.Value[*jobs.JobList](d.cache.Get(poller.JobsKey))
	if !ok || list == nil {
		return nil
	}
	return list.Jobs
}

func (d *Dashboard) onCacheChange(key poller.Key) {
	if key == poller.JobsKey {
		if list, ok := poller.Value[*jobs.JobList](d.cache.Get(poller.JobsKey)); ok && list != nil {
			d.sel.Reconcile(list.Jobs)
		}
		d.syncDetail()
	} else if id, ok := key.JobID(); ok && key == poller.TranscriptKey(id) {
		d.syncDetail()
	}
	d.notify()
}

func (d *Dashboard) onSelectionChange() {
	d.syncDetail()
	if d.session != nil {
		d.session.save(d.sel.SelectedJobID(), d.sel.URL())
	}
	d.notify()
}

// syncDetail keeps consumers on the events and transcript keys of the
// effective selected job only. A completed job's transcript cannot change,
// so its key stops polling after the first successful fetch.
func (d *Dashboard) syncDetail() {
	var release []func()
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	effective := view.EffectiveJob(d.jobs(), d.sel.SelectedJobID())
	id := ""
	if effective != nil {
		id = effective.ID
	}
	if id != d.detailID {
		if d.releaseEvents != nil {
			release = append(release, d.releaseEvents)
			d.releaseEvents = nil
		}
		if d.releaseTranscript != nil {
			release = append(release, d.releaseTranscript)
			d.releaseTranscript = nil
		}
		d.detailID = id
		d.detailCompleted = false
		if id != "" {
			d.releaseEvents = d.cache.Acquire(poller.EventsKey(id), d.eventsFetcher(id), d.refresh)
		}
	}

	wantTranscript := effective != nil && effective.HasTranscript()
	switch {
	case wantTranscript:
		key := poller.TranscriptKey(id)
		completed := effective.Status == jobs.StatusCompleted
		if d.releaseTranscript == nil {
			d.releaseTranscript = d.cache.Acquire(key, d.transcriptFetcher(id), d.transcriptIntervalLocked(key, completed))
		} else {
			if completed && !d.detailCompleted {
				// Pick up the final text once the job finishes.
				d.cache.Refresh(key)
			}
			d.cache.SetInterval(key, d.transcriptIntervalLocked(key, completed))
		}
		d.detailCompleted = completed
	case d.releaseTranscript != nil:
		release = append(release, d.releaseTranscript)
		d.releaseTranscript = nil
	}
	d.mu.Unlock()

	for _, fn := range release {
		fn()
	}
}

// transcriptIntervalLocked polls until a completed job's transcript has
// been fetched successfully. Failures keep polling.
func (d *Dashboard) transcriptIntervalLocked(key poller.Key, completed bool) time.Duration {
	if !completed {
		return d.refresh
	}
	snap := d.cache.Get(key)
	if snap.HasData && snap.Err == nil {
		return 0
	}
	return d.refresh
}

// View derives the current view model.
func (d *Dashboard) View() view.Model {
	return view.Build(d.input())
}

func (d *Dashboard) input() view.Input {
	jobsSnap := d.cache.Get(poller.JobsKey)
	list, _ := poller.Value[*jobs.JobList](jobsSnap)
	sel := d.sel.Snapshot()

	d.mu.Lock()
	refresh := d.refresh
	d.mu.Unlock()

	in := view.Input{
		JobsLoading:     jobsSnap.IsLoading,
		JobsErr:         jobsSnap.Err,
		Selection:       sel,
		APIBaseURL:      d.store.BaseURL(),
		RefreshInterval: refresh,
	}
	if list != nil {
		in.Jobs = list.Jobs
	}
	if settings, ok := poller.Value[*jobs.Settings](d.cache.Get(poller.SettingsKey)); ok {
		in.Settings = settings
	}

	if effective := view.EffectiveJob(in.Jobs, sel.SelectedJobID); effective != nil {
		if events, ok := poller.Value[[]jobs.Event](d.cache.Get(poller.EventsKey(effective.ID))); ok {
			in.Events = events
		}
		if effective.HasTranscript() {
			snap := d.cache.Get(poller.TranscriptKey(effective.ID))
			t, _ := poller.Value[transcript](snap)
			in.Transcript = view.Transcript{
				Text:     t.text,
				Language: t.language,
				Loaded:   snap.HasData,
				Loading:  !snap.HasData && snap.Err == nil,
				Err:      snap.Err,
			}
		}
	}
	return in
}

// Subscribe registers fn to run after any cache or selection change.
func (d *Dashboard) Subscribe(fn func()) func() {
	d.subsMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subsMu.Unlock()

	return func() {
		d.subsMu.Lock()
		delete(d.subs, id)
		d.subsMu.Unlock()
	}
}

func (d *Dashboard) notify() {
	d.subsMu.RLock()
	fns := make([]func(), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subsMu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// RefreshInterval returns the active polling period.
func (d *Dashboard) RefreshInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refresh
}

func (d *Dashboard) JobsLimit() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.jobsLimit
}

// ApplySettings changes the polling period and jobs page size at runtime.
// Every armed timer is re-armed; a new limit refetches the jobs list.
func (d *Dashboard) ApplySettings(refresh time.Duration, jobsLimit int) {
	d.mu.Lock()
	limitChanged := jobsLimit > 0 && jobsLimit != d.jobsLimit
	if jobsLimit > 0 {
		d.jobsLimit = jobsLimit
	}
	if refresh > 0 && refresh != d.refresh {
		d.refresh = refresh
		for _, key := range d.cache.Polled() {
			d.cache.SetInterval(key, refresh)
		}
	}
	d.mu.Unlock()

	if limitChanged {
		d.cache.Revalidate(poller.JobsKey)
	}
	d.notify()
}

// Select makes jobID the explicit selection.
func (d *Dashboard) Select(jobID string) {
	d.sel.Select(strings.TrimSpace(jobID))
}

// SetURL updates the compose URL; an edit away from the previewed URL
// discards the preview.
func (d *Dashboard) SetURL(u string) {
	d.sel.SetURL(u)
}

func (d *Dashboard) SelectFormat(formatID string) error {
	if err := d.sel.SelectFormat(formatID); err != nil {
		return WrapError(err, ErrValidation, "")
	}
	return nil
}

// SubmitJob creates jobs for rawURL. On success the jobs list is revalidated
// at once instead of waiting for the next tick.
func (d *Dashboard) SubmitJob(ctx context.Context, rawURL string, formatID *string) (*jobs.CreateResponse, error) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return nil, NewError(ErrValidation, "URL is required")
	}
	resp, err := d.store.CreateJobs(ctx, target, formatID)
	if err != nil {
		log.Error("dashboard: submit %s failed: %v", target, err)
		return nil, WrapError(err, ErrAction, UserMessage(err)).WithContext("url", target)
	}
	log.Info("dashboard: submitted %s (batch %s)", target, resp.BatchID)
	d.cache.Revalidate(poller.JobsKey)
	return resp, nil
}

// Submit sends the compose URL with the previewed format, if one was chosen.
// Success resets the compose session; failure leaves the preview untouched.
func (d *Dashboard) Submit(ctx context.Context) (*jobs.CreateResponse, error) {
	target := d.sel.URL()
	formatID := d.sel.SubmissionFormat()

	d.sel.BeginSubmit()
	resp, err := d.SubmitJob(ctx, target, formatID)
	if err != nil {
		d.sel.FailSubmit(UserMessage(err))
		return nil, err
	}
	d.sel.CompleteSubmit(resp.Message)
	return resp, nil
}

// PreviewFormats lists the formats of rawURL without touching any state.
func (d *Dashboard) PreviewFormats(ctx context.Context, rawURL string) (*jobs.Preview, error) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return nil, NewError(ErrValidation, "URL is required")
	}
	preview, err := d.store.PreviewFormats(ctx, target)
	if err != nil {
		log.Error("dashboard: preview %s failed: %v", target, err)
		return nil, WrapError(err, ErrAction, UserMessage(err)).WithContext("url", target)
	}
	return preview, nil
}

// Preview runs PreviewFormats for the compose URL. A result that arrives
// after the URL was edited, or after a newer preview was started, is dropped.
func (d *Dashboard) Preview(ctx context.Context) (*jobs.Preview, error) {
	ticket, ok := d.sel.BeginPreview()
	if !ok {
		return nil, NewError(ErrValidation, "URL is required")
	}
	preview, err := d.PreviewFormats(ctx, ticket.URL)
	if err != nil {
		d.sel.FailPreview(ticket, UserMessage(err))
		return nil, err
	}
	d.sel.CompletePreview(ticket, preview)
	return preview, nil
}

// DeleteJob removes a failed job after confirm approves it. On failure the
// job stays listed and the error is attached to it.
func (d *Dashboard) DeleteJob(ctx context.Context, jobID string, confirm ConfirmFunc) (*jobs.DeleteResponse, error) {
	job, known := d.lookup(jobID)
	if !known {
		job = jobs.Job{ID: jobID}
	} else if !job.Removable() {
		return nil, NewError(ErrValidation, "only failed jobs can be removed").
			WithContext("job", jobID).
			WithContext("status", string(job.Status))
	}
	if confirm == nil || !confirm(job) {
		return nil, NewError(ErrNotConfirmed, "removal was not confirmed").WithContext("job", jobID)
	}

	resp, err := d.store.DeleteJob(ctx, jobID)
	if err != nil {
		log.Error("dashboard: remove %s failed: %v", jobID, err)
		msg := UserMessage(err)
		d.sel.FailRemove(jobID, msg)
		return nil, WrapError(err, ErrAction, msg).WithContext("job", jobID)
	}
	log.Info("dashboard: removed %s", jobID)
	d.sel.CompleteRemove(jobID)
	d.cache.Revalidate(poller.JobsKey)
	return resp, nil
}

func (d *Dashboard) lookup(jobID string) (jobs.Job, bool) {
	for _, job := range d.jobs() {
		if job.ID == jobID {
			return job, true
		}
	}
	return jobs.Job{}, false
}

// Confirmed is a ConfirmFunc that always approves, for callers that already
// asked the operator.
func Confirmed(jobs.Job) bool { return true }
