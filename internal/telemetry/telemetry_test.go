package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-orrery/internal/logging"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type memSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (m *memSink) Write(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memSink) got() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func TestEmitterDelivers(t *testing.T) {
	sink := &memSink{}
	e := NewEmitter(nil, []Sink{sink}, WithSession("s1"), WithClock(func() time.Time { return fixedNow }))
	e.Start(context.Background())

	e.Emit(EventPositionMode, Payload{"mode": "live"})
	e.Emit(EventQualityTier, Payload{"tier": "low"})
	e.Error("ephemeris", errors.New("boom"))
	e.Error("ignored", nil)
	require.NoError(t, e.Close())

	events := sink.got()
	require.Len(t, events, 3)
	assert.Equal(t, EventPositionMode, events[0].Type)
	assert.Equal(t, EventQualityTier, events[1].Type)
	assert.Equal(t, EventError, events[2].Type)
	assert.Equal(t, "boom", events[2].Payload["message"])
	for _, ev := range events {
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, fixedNow, ev.Timestamp)
	}
	assert.EqualValues(t, 3, e.Written())
	assert.True(t, sink.closed)
}

func TestEmitterNeverBlocks(t *testing.T) {
	sink := &memSink{}
	e := NewEmitter(nil, []Sink{sink}, WithBuffer(2))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			e.Emit(EventBenchmarkResult, Payload{"i": i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	assert.EqualValues(t, 3, e.Dropped())
	require.NoError(t, e.Close())
	assert.Len(t, sink.got(), 2, "Close should flush queued events")
}

func TestEmitterSwallowsSinkErrors(t *testing.T) {
	bad := &memSink{err: errors.New("disk full")}
	good := &memSink{}
	e := NewEmitter(nil, []Sink{bad, good})
	e.Start(context.Background())
	e.Emit(EventEphemerisFallback, Payload{"reason": "timeout"})
	require.NoError(t, e.Close())

	assert.Empty(t, bad.got())
	require.Len(t, good.got(), 1)
	assert.NotEmpty(t, e.Session())
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	sink, err := OpenSQLite(path)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Write(ctx, Event{Type: EventQualityTier, SessionID: "a", Timestamp: fixedNow, Payload: Payload{"tier": "high", "fps": 59.5}}))
	require.NoError(t, sink.Write(ctx, Event{Type: EventPositionMode, SessionID: "b", Timestamp: fixedNow}))
	require.NoError(t, sink.Write(ctx, Event{Type: EventError, SessionID: "a", Timestamp: fixedNow.Add(time.Second), Payload: Payload{"message": "x"}}))

	events, err := sink.Events(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventQualityTier, events[0].Type)
	assert.Equal(t, "high", events[0].Payload["tier"])
	assert.Equal(t, 59.5, events[0].Payload["fps"])
	assert.True(t, fixedNow.Equal(events[0].Timestamp))
	assert.Equal(t, EventError, events[1].Type)

	events, err = sink.Events(ctx, "b")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Payload)
}

func TestInfluxSink(t *testing.T) {
	var (
		mu    sync.Mutex
		body  string
		query string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body, query = string(b), r.URL.RawQuery
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "t", Org: "orrery", Bucket: "events"})
	defer sink.Close()
	err := sink.Write(context.Background(), Event{
		Type:      EventQualityTier,
		SessionID: "s1",
		Timestamp: fixedNow,
		Payload:   Payload{"tier": "low", "nested": map[string]any{"skip": true}},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, body, "orrery_event,event_type=quality_tier,session=s1")
	assert.Contains(t, body, "count=1i")
	assert.Contains(t, body, `tier="low"`)
	assert.NotContains(t, body, "nested")
	assert.Contains(t, query, "bucket=events")
	assert.Contains(t, query, "org=orrery")
}

func TestHTTPSink(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, srv.Client())
	require.NoError(t, sink.Write(context.Background(), Event{Type: EventEphemerisMode, SessionID: "s1", Timestamp: fixedNow}))
	assert.Equal(t, EventEphemerisMode, got.Type)
	assert.Equal(t, "s1", got.SessionID)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	err := NewHTTPSink(failing.URL, nil).Write(context.Background(), Event{Type: EventError})
	assert.ErrorContains(t, err, "500")
}

func TestLogSinkWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.LevelInfo)
	log.SetOutput(&buf)

	sink := LogSink{Log: log}
	require.NoError(t, sink.Write(context.Background(), Event{
		Type:      EventQualityTier,
		SessionID: "sess_1",
		Timestamp: fixedNow,
		Payload:   Payload{"tier": "low"},
	}))
	out := buf.String()
	for _, want := range []string{"telemetry", "event=quality_tier", "session=sess_1", "tier=low"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	log.SetLevel(logging.LevelWarn)
	require.NoError(t, sink.Write(context.Background(), Event{Type: EventQualityTier}))
	assert.Empty(t, buf.String(), "info events are filtered by the logger level")
}
