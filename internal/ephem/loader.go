package ephem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultSnapshotPath is where --fetch-ephemeris writes and the file
	// loader reads by default.
	DefaultSnapshotPath = "data/ephemeris/latest.json"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second
)

// Loader produces a snapshot.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Snapshot, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*Snapshot, error) {
	return f(ctx)
}

// FileLoader reads a snapshot from disk.
type FileLoader struct {
	Path string
}

// Load implements Loader.
func (l FileLoader) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// HTTPLoader fetches a snapshot file over HTTP.
type HTTPLoader struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// LoaderOption configures an HTTPLoader.
type LoaderOption func(*HTTPLoader)

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *HTTPLoader) {
		l.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *HTTPLoader) {
		l.client = client
	}
}

// NewHTTPLoader creates a loader for the snapshot at url.
func NewHTTPLoader(url string, opts ...LoaderOption) *HTTPLoader {
	l := &HTTPLoader{
		url:     url,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: l.timeout}
	}
	return l
}

// URL returns the configured snapshot URL.
func (l *HTTPLoader) URL() string {
	return l.url
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to load ephemeris snapshot: status %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}
