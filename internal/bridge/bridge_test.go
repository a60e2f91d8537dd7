package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/scene"
	"github.com/litescript/ls-orrery/internal/sim"
)

type recorder struct {
	mu     sync.Mutex
	inputs []sim.Input
	full   bool
}

func (r *recorder) Submit(in sim.Input) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.inputs = append(r.inputs, in)
	return true
}

func (r *recorder) got() []sim.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sim.Input(nil), r.inputs...)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func serve(t *testing.T, target Submitter, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(target, cfg)
	m := perf.NewMetrics()
	m.ObserveFrame(16)
	srv := httptest.NewServer(NewServeMux(hub, m.Handler()))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	before := hub.Clients()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	eventually(t, func() bool { return hub.Clients() == before+1 })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestCommandInput(t *testing.T) {
	tests := []struct {
		cmd  Command
		want sim.Input
	}{
		{Command{Type: "focus", Body: "Earth"}, sim.Focus{Name: "Earth"}},
		{Command{Type: "next"}, sim.FocusNext{}},
		{Command{Type: "prev"}, sim.FocusPrev{}},
		{Command{Type: "reset"}, sim.Reset{}},
		{Command{Type: "warp", Value: 75}, sim.SetTimeWarp{Percent: 75}},
		{Command{Type: "position_mode", Mode: "live"}, sim.SetPositionMode{Mode: orbit.Live}},
		{Command{Type: "data_mode", Mode: "accurate"}, sim.SetDataMode{Mode: orbit.Accurate}},
		{Command{Type: "scrub_distance", Value: 9000, Tween: true}, sim.ScrubToDistance{Distance: 9000, Tween: true}},
		{Command{Type: "scrub_percent", Value: 40}, sim.ScrubToPercent{Percent: 40}},
		{Command{Type: "tour", Key: "galaxy"}, sim.GuidedTour{Key: "galaxy"}},
		{Command{Type: "drag", On: true}, sim.SetDragging{On: true}},
		{Command{Type: "orbit", DAzimuth: 0.1, DPolar: -0.2}, sim.OrbitView{DAzimuth: 0.1, DPolar: -0.2}},
		{Command{Type: "dolly", Value: 1.5}, sim.Dolly{Factor: 1.5}},
		{Command{Type: "hidden", On: true}, sim.SetHidden{Hidden: true}},
		{Command{Type: "hover", Body: "Mars"}, sim.Hover{Name: "Mars"}},
		{Command{Type: "autorotate"}, sim.SetAutoRotate{On: false}},
		{Command{Type: "resync"}, sim.Resync{}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Type, func(t *testing.T) {
			got, err := tt.cmd.Input()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandInputErrors(t *testing.T) {
	_, err := Command{Type: "warpdrive"}.Input()
	assert.True(t, errors.Is(err, ErrUnknownCommand))

	for _, cmd := range []Command{
		{Type: "focus"},
		{Type: "position_mode", Mode: "sideways"},
		{Type: "data_mode", Mode: "precise"},
		{Type: "scrub_distance", Value: -1},
		{Type: "dolly"},
	} {
		_, err := cmd.Input()
		assert.Error(t, err, cmd.Type)
	}
}

func TestCommandsReachSubmitter(t *testing.T) {
	rec := &recorder{}
	hub, srv := serve(t, rec, Config{})
	conn := dial(t, hub, srv)

	require.NoError(t, conn.WriteJSON(Command{Type: "focus", Body: "Mars"}))
	require.NoError(t, conn.WriteJSON(Command{Type: "tour", Key: "outer"}))
	eventually(t, func() bool { return len(rec.got()) == 3 })
	assert.Equal(t, []sim.Input{sim.Resync{}, sim.Focus{Name: "Mars"}, sim.GuidedTour{Key: "outer"}}, rec.got())
}

func TestBadCommandGetsError(t *testing.T) {
	rec := &recorder{}
	hub, srv := serve(t, rec, Config{})
	conn := dial(t, hub, srv)

	require.NoError(t, conn.WriteJSON(Command{Type: "warpdrive"}))
	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Type)
	assert.Contains(t, env.Message, "unknown command")
	assert.Equal(t, []sim.Input{sim.Resync{}}, rec.got())
}

func TestBusySubmitterReported(t *testing.T) {
	rec := &recorder{full: true}
	hub, srv := serve(t, rec, Config{})
	conn := dial(t, hub, srv)

	require.NoError(t, conn.WriteJSON(Command{Type: "reset"}))
	env := readEnvelope(t, conn)
	assert.Equal(t, "busy", env.Message)
}

func TestCommandRateLimit(t *testing.T) {
	rec := &recorder{}
	hub, srv := serve(t, rec, Config{CommandRate: 0.001, CommandBurst: 2})
	conn := dial(t, hub, srv)

	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteJSON(Command{Type: "next"}))
	}
	for i := 0; i < 3; i++ {
		env := readEnvelope(t, conn)
		assert.Equal(t, "rate limited", env.Message)
	}
	assert.Len(t, rec.got(), 3)
}

func TestBroadcastFrames(t *testing.T) {
	hub, srv := serve(t, &recorder{}, Config{})
	a := dial(t, hub, srv)
	b := dial(t, hub, srv)

	out := sim.FrameOutput{
		Frame:    7,
		Distance: 40,
		Bodies:   []sim.BodyFrame{{Name: "Earth", Kind: "planet", Radius: 1}},
	}
	require.NoError(t, hub.Broadcast(out))

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		require.Equal(t, "frame", env.Type)
		require.NotNil(t, env.Frame)
		assert.Equal(t, uint64(7), env.Frame.Frame)
		earth, ok := env.Frame.Body("Earth")
		require.True(t, ok)
		assert.Equal(t, "planet", earth.Kind)
	}
}

func TestSlowClientDropsFrames(t *testing.T) {
	hub := NewHub(&recorder{}, Config{SendBuffer: 1})
	c := &client{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 1}))
	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 2}))
	assert.Equal(t, int64(1), hub.Dropped())

	var env Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, uint64(1), env.Frame.Frame)
}

func TestSlowClientCatchesUpSceneWrites(t *testing.T) {
	hub := NewHub(&recorder{}, Config{SendBuffer: 1})
	c := &client{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 1}))
	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 2, Scene: &scene.Delta{
		DrawRange: map[string]int{"belt/dust": 80},
	}}))
	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 3, Scene: &scene.Delta{
		Opacity: map[string]float64{"orbit/mars": 0.4},
	}}))
	<-c.send

	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 4}))
	var env Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, uint64(4), env.Frame.Frame)
	require.NotNil(t, env.Frame.Scene)
	assert.Equal(t, 80, env.Frame.Scene.DrawRange["belt/dust"])
	assert.Equal(t, 0.4, env.Frame.Scene.Opacity["orbit/mars"])

	require.NoError(t, hub.Broadcast(sim.FrameOutput{Frame: 5}))
	var next Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &next))
	assert.Nil(t, next.Frame.Scene)
}

func TestConnectRequestsResync(t *testing.T) {
	rec := &recorder{}
	hub, srv := serve(t, rec, Config{})
	dial(t, hub, srv)
	eventually(t, func() bool { return len(rec.got()) == 1 })
	assert.Equal(t, sim.Resync{}, rec.got()[0])
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := serve(t, &recorder{}, Config{})
	conn := dial(t, hub, srv)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	eventually(t, func() bool { return hub.Clients() == 0 })
}

func TestHealthAndMetrics(t *testing.T) {
	_, srv := serve(t, &recorder{}, Config{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "orrery_ticks_total")
}
