package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/litescript/ls-orrery/internal/logging"
)

// LogSink writes events to a logger.
type LogSink struct {
	Log *logging.Logger
}

// Write implements Sink. Payload entries become structured fields.
func (s LogSink) Write(_ context.Context, e Event) error {
	zl := s.Log.Zerolog()
	zl.Info().
		Str("event", string(e.Type)).
		Str("session", e.SessionID).
		Fields(map[string]any(e.Payload)).
		Msg("telemetry")
	return nil
}

// Close implements Sink.
func (LogSink) Close() error { return nil }

// SQLiteSink appends events to a local SQLite database.
type SQLiteSink struct {
	db *sqlx.DB
}

type eventRow struct {
	ID        int64  `db:"id"`
	SessionID string `db:"session_id"`
	EventType string `db:"event_type"`
	TsMs      int64  `db:"ts_ms"`
	Payload   string `db:"payload_json"`
}

// OpenSQLite opens or creates the event database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		ts_ms INTEGER NOT NULL,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate telemetry db: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, event_type, ts_ms, payload_json) VALUES (?, ?, ?, ?)`,
		e.SessionID, string(e.Type), e.Timestamp.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns a session's events in insertion order.
func (s *SQLiteSink) Events(ctx context.Context, session string) ([]Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, session_id, event_type, ts_ms, payload_json FROM events WHERE session_id = ? ORDER BY id`, session)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		e := Event{
			Type:      EventType(r.EventType),
			SessionID: r.SessionID,
			Timestamp: time.UnixMilli(r.TsMs).UTC(),
		}
		if err := json.Unmarshal([]byte(r.Payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of event %d: %w", r.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Measurement is the InfluxDB measurement events are written to.
const Measurement = "orrery_event"

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink writes each event as a point. Numeric, string and boolean
// payload values become fields.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

// NewInfluxSink creates a sink. No connection is made until the first
// write.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(10))
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Point converts an event to a line-protocol point.
func Point(e Event) *write.Point {
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("event_type", string(e.Type)).
		AddTag("session", e.SessionID).
		AddField("count", 1).
		SetTime(e.Timestamp)
	for k, v := range e.Payload {
		switch v.(type) {
		case float64, float32, int, int64, int32, uint32, uint64, bool, string:
			p.AddField(k, v)
		}
	}
	return p
}

// Write implements Sink.
func (s *InfluxSink) Write(ctx context.Context, e Event) error {
	if err := s.writer.WritePoint(ctx, Point(e)); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// HTTPSink posts each event as JSON to a collector endpoint.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink for url.
func NewHTTPSink(url string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPSink{url: url, client: client}
}

// Write implements Sink.
func (s *HTTPSink) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("post event: unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Close implements Sink.
func (*HTTPSink) Close() error { return nil }
