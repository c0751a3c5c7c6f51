package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultJobsLimit is the page size used when listing jobs.
const DefaultJobsLimit = 100

// Client talks to the job store over HTTP/JSON
// Safe for concurrent use
//
// httpClient: HTTP client for API requests
// baseURL: job store base URL without trailing slash
// limiter: optional client-side throttle shared by all requests
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a job store client
//
// Example:
//
//	client, err := remote.NewClient(&remote.Config{BaseURL: "http://localhost:8000", Timeout: 10})
//	if err != nil {
//		log.Fatal(err)
//	}
//	list, err := client.ListJobs(ctx, remote.DefaultJobsLimit)
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}
	if config.RatePerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst)
	}
	return client, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListJobs returns up to limit most recent jobs
func (c *Client) ListJobs(ctx context.Context, limit int) (*jobs.JobList, error) {
	if limit <= 0 {
		limit = DefaultJobsLimit
	}
	var out jobs.JobList
	path := "/jobs?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return &out, nil
}

// ListEvents returns the timeline of one job
func (c *Client) ListEvents(ctx context.Context, jobID string) ([]jobs.Event, error) {
	var out []jobs.Event
	if err := c.doJSON(ctx, http.MethodGet, jobPath(jobID, "events"), nil, &out); err != nil {
		return nil, fmt.Errorf("list events for %s: %w", jobID, err)
	}
	return out, nil
}

func (c *Client) GetSettings(ctx context.Context) (*jobs.Settings, error) {
	var out jobs.Settings
	if err := c.doJSON(ctx, http.MethodGet, "/settings", nil, &out); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &out, nil
}

// PreviewFormats lists the downloadable formats of a URL without creating a job
func (c *Client) PreviewFormats(ctx context.Context, videoURL string) (*jobs.Preview, error) {
	var out jobs.Preview
	payload := map[string]string{"url": videoURL}
	if err := c.doJSON(ctx, http.MethodPost, "/preview", payload, &out); err != nil {
		return nil, fmt.Errorf("preview formats: %w", err)
	}
	return &out, nil
}

// CreateJobs submits a URL. A nil formatID leaves the format to the server.
func (c *Client) CreateJobs(ctx context.Context, videoURL string, formatID *string) (*jobs.CreateResponse, error) {
	var out jobs.CreateResponse
	payload := jobs.CreateRequest{URL: videoURL, FormatID: formatID}
	if err := c.doJSON(ctx, http.MethodPost, "/jobs", payload, &out); err != nil {
		return nil, fmt.Errorf("create jobs: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteJob(ctx context.Context, jobID string) (*jobs.DeleteResponse, error) {
	var out jobs.DeleteResponse
	if err := c.doJSON(ctx, http.MethodDelete, jobPath(jobID, ""), nil, &out); err != nil {
		return nil, fmt.Errorf("delete job %s: %w", jobID, err)
	}
	return &out, nil
}

// GetTranscript returns the transcript text of a job
func (c *Client) GetTranscript(ctx context.Context, jobID string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, jobPath(jobID, "transcript"), nil)
	if err != nil {
		return "", fmt.Errorf("get transcript for %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcript for %s: %w", jobID, err)
	}
	return string(body), nil
}

// MediaURL is the direct link to a job's downloaded file. Media is streamed
// by the consumer and never buffered here.
func (c *Client) MediaURL(jobID string) string {
	return c.baseURL + jobPath(jobID, "media")
}

func (c *Client) TranscriptURL(jobID string) string {
	return c.baseURL + jobPath(jobID, "transcript")
}

func jobPath(jobID, suffix string) string {
	p := "/jobs/" + url.PathEscape(jobID)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// do sends one request and converts non-2xx answers into *HTTPError
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, newHTTPError(resp.StatusCode, string(raw))
	}
	return resp, nil
}
