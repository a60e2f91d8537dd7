package ephem

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleSnapshot = `{
  "source": "NASA JPL Horizons",
  "generatedAt": "2024-01-01T12:00:00Z",
  "validAt": "2024-01-01T00:00:00.000Z",
  "coordinateFrame": "heliocentric-au",
  "bodies": {
    "Earth": {"x": -0.168, "y": 0.968, "z": -0.00006},
    "Mars": {"x": 0.21, "y": -1.43, "z": -0.035}
  }
}`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Source != SourceHorizons {
		t.Errorf("Source = %q", s.Source)
	}
	if len(s.Bodies) != 2 {
		t.Errorf("len(Bodies) = %d, want 2", len(s.Bodies))
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !s.ValidAt.Equal(want) {
		t.Errorf("ValidAt = %v, want %v", s.ValidAt, want)
	}
	if _, err := s.Body("Jupiter"); !errors.Is(err, ErrBodyMissing) {
		t.Errorf("Body(Jupiter) error = %v, want ErrBodyMissing", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"garbage":     "{",
		"empty":       `{"source":"x","bodies":{}}`,
		"wrong frame": `{"coordinateFrame":"geocentric-km","bodies":{"Earth":{"x":1,"y":0,"z":0}}}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode after Encode: %v", err)
	}
	if back.Bodies["Mars"] != s.Bodies["Mars"] {
		t.Errorf("Mars = %+v, want %+v", back.Bodies["Mars"], s.Bodies["Mars"])
	}
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.json")
	if err := os.WriteFile(path, []byte(sampleSnapshot), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := FileLoader{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Body("Earth"); err != nil {
		t.Error(err)
	}

	if _, err := (FileLoader{Path: path + ".missing"}).Load(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/ephemeris/latest.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleSnapshot))
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.URL+"/data/ephemeris/latest.json", WithTimeout(time.Second))
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	missing := NewHTTPLoader(srv.URL+"/nope", WithHTTPClient(srv.Client()))
	if _, err := missing.Load(context.Background()); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

func TestStoreCachesUntilClear(t *testing.T) {
	var loads atomic.Int32
	store := NewStore(LoaderFunc(func(ctx context.Context) (*Snapshot, error) {
		loads.Add(1)
		return Decode(strings.NewReader(sampleSnapshot))
	}))

	ctx := context.Background()
	a, err := store.LoadLatest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := store.LoadLatest(ctx)
	if a != b || loads.Load() != 1 {
		t.Errorf("expected one load and a shared snapshot, got %d loads", loads.Load())
	}

	store.Clear()
	if store.Cached() != nil {
		t.Error("Cached should be nil after Clear")
	}
	if _, err := store.LoadLatest(ctx); err != nil {
		t.Fatal(err)
	}
	if loads.Load() != 2 {
		t.Errorf("loads = %d, want 2", loads.Load())
	}
}

func TestStoreFetchAsync(t *testing.T) {
	store := NewStore(LoaderFunc(func(ctx context.Context) (*Snapshot, error) {
		return nil, ErrNoSnapshot
	}))

	res, ok := <-store.FetchAsync(context.Background())
	if !ok {
		t.Fatal("channel closed without a result")
	}
	if !errors.Is(res.Err, ErrNoSnapshot) || res.Snapshot != nil {
		t.Errorf("got %+v, want ErrNoSnapshot", res)
	}
	if store.Cached() != nil {
		t.Error("failed load must not be cached")
	}
}

func TestGetNAIFID(t *testing.T) {
	tests := []struct {
		name string
		want TargetID
	}{
		{"Mercury", 199},
		{"earth", 399},
		{"PLUTO", 999},
		{"Ceres", 0},
	}
	for _, tt := range tests {
		if got := GetNAIFID(tt.name); got != tt.want {
			t.Errorf("GetNAIFID(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
