package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	startErr error
	started  bool
	closed   bool
}

func (f *fakeDashboard) Start(context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeDashboard) Close() {
	f.closed = true
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(string) error {
	close(f.listenCalled)
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func TestRunWithComponents_StartsDashboardAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Addr:      "127.0.0.1:0",
			UIEnabled: true,
		},
	}
	dash := &fakeDashboard{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, cfg, dash, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, dash.started)
	assert.True(t, dash.closed)
}

func TestRunWithComponents_StartFailure(t *testing.T) {
	dash := &fakeDashboard{startErr: errors.New("boom")}
	httpSrv := newFakeHTTP()

	err := runWithComponents(context.Background(), &config.Config{}, dash, httpSrv)
	require.Error(t, err)
	assert.True(t, dash.closed)

	select {
	case <-httpSrv.listenCalled:
		t.Fatal("http server must not start when the dashboard fails")
	default:
	}
}

// fakeStoreServer serves a fixed queue over the job store HTTP contract.
func fakeStoreServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu      sync.Mutex
		deleted []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"jobs":[
				{"id":"f1","source_url":"https://x/1","title":"Broken","status":"failed","error":"HTTP 403","created_at":"2024-05-01T10:30:00"},
				{"id":"d1","source_url":"https://x/2","status":"downloading","progress":12.5,"created_at":"2024-05-01T10:31:00"}
			],"total":2}`))
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["url"] == "https://bad" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("Unsupported URL"))
				return
			}
			_, _ = w.Write([]byte(`{"batch_id":"b1","message":"queued 1 job"}`))
		}
	})
	mux.HandleFunc("/jobs/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
		switch {
		case strings.HasSuffix(rest, "/events"):
			_, _ = w.Write([]byte(`[{"id":1,"job_id":"f1","event_type":"failed","message":"HTTP 403","created_at":"2024-05-01T10:32:00"}]`))
		case r.Method == http.MethodDelete:
			mu.Lock()
			deleted = append(deleted, rest)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"job_id":"` + rest + `","message":"Job deleted"}`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cookies_configured":true,"cookies_path":"/c.txt"}`))
	})
	mux.HandleFunc("/preview", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Clip","duration":125,"formats":[{"format_id":"18","ext":"mp4","resolution":"640x360","filesize":1536}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &deleted
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SETTINGS_FILE", filepath.Join(t.TempDir(), "client-settings.json"))
	t.Setenv("DATA_DIR", t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_Jobs(t *testing.T) {
	srv, _ := fakeStoreServer(t)

	out, err := runCLI(t, "", "jobs", "--api", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "Jobs 2  active 1  completed 0  failed 1  cookies: Enabled")
	assert.Contains(t, out, "Broken")
	assert.Contains(t, out, "Downloading")
	assert.Contains(t, out, "2024-05-01 10:30:00")
	assert.Contains(t, out, "HTTP 403")
}

func TestCLI_Submit(t *testing.T) {
	srv, _ := fakeStoreServer(t)

	out, err := runCLI(t, "", "submit", "https://www.youtube.com/watch?v=abc", "--api", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "queued 1 job (batch b1)")
}

func TestCLI_SubmitErrorVerbatim(t *testing.T) {
	srv, _ := fakeStoreServer(t)

	out, err := runCLI(t, "", "submit", "https://bad", "--api", srv.URL)
	require.Error(t, err)
	assert.Equal(t, "Unsupported URL", err.Error())
	assert.Contains(t, out, "Unsupported URL")
}

func TestCLI_Preview(t *testing.T) {
	srv, _ := fakeStoreServer(t)

	out, err := runCLI(t, "", "preview", "https://www.youtube.com/watch?v=abc", "--api", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Clip")
	assert.Contains(t, out, "Unknown uploader · 2m 5s")
	assert.Contains(t, out, "18 · MP4 · 640x360 · 1.5 KB")
}

func TestCLI_RemoveAsksForConfirmation(t *testing.T) {
	srv, deleted := fakeStoreServer(t)

	out, err := runCLI(t, "n\n", "remove", "f1", "--api", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Remove Broken (f1) from the queue?")
	assert.Contains(t, out, "Aborted.")
	assert.Empty(t, *deleted)

	out, err = runCLI(t, "y\n", "remove", "f1", "--api", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Job deleted")
	assert.Equal(t, []string{"f1"}, *deleted)
}

func TestCLI_RemoveRefusesActiveJob(t *testing.T) {
	srv, deleted := fakeStoreServer(t)

	_, err := runCLI(t, "", "remove", "d1", "--yes", "--api", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only failed jobs")
	assert.Empty(t, *deleted)
}
