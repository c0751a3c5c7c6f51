package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"API_BASE", "REFRESH_INTERVAL_MS", "JOBS_LIMIT", "HTTP_ADDR", "UI_STATIC_DIR", "UI_ENABLED", "DATA_DIR"} {
		t.Setenv(key, "")
	}

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Remote.BaseURL)
	assert.Equal(t, 4*time.Second, cfg.Poll.RefreshInterval())
	assert.Equal(t, 100, cfg.Poll.JobsLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/app/web", cfg.HTTP.UIStaticDir)
	assert.True(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, "/app/data", cfg.System.DataDir)
	assert.Equal(t, filepath.Join("/app/data", "qtube.db"), cfg.DBPath())
}

func TestNewFromEnv_FromEnv(t *testing.T) {
	t.Setenv("API_BASE", "https://jobs.example:9000")
	t.Setenv("REFRESH_INTERVAL_MS", "1500")
	t.Setenv("JOBS_LIMIT", "25")
	t.Setenv("UI_ENABLED", "false")
	t.Setenv("DATA_DIR", "/tmp/qtube-data")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://jobs.example:9000", cfg.Remote.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Poll.RefreshInterval())
	assert.Equal(t, 25, cfg.Poll.JobsLimit)
	assert.False(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, filepath.Join("/tmp/qtube-data", "qtube.db"), cfg.DBPath())
}

func TestNewFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"relative base", "API_BASE", "localhost:8000"},
		{"ftp base", "API_BASE", "ftp://jobs.example"},
		{"zero interval", "REFRESH_INTERVAL_MS", "0"},
		{"limit too large", "JOBS_LIMIT", "501"},
		{"negative rate", "REQUEST_RATE", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := NewFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestNewFromEnv_OptionsOverrideEnv(t *testing.T) {
	t.Setenv("API_BASE", "http://env.example")

	cfg, err := NewFromEnv(WithAPIBase("http://flag.example"), WithHTTPAddr("127.0.0.1:9999"))
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example", cfg.Remote.BaseURL)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("QTUBE_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("QTUBE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("QTUBE_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("QTUBE_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
