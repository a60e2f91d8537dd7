package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/litescript/ls-orrery/internal/logging"
	"github.com/litescript/ls-orrery/internal/scene"
	"github.com/litescript/ls-orrery/internal/sim"
)

// Defaults for Config.
const (
	DefaultCommandRate  = 30 // commands per second per connection
	DefaultCommandBurst = 60
	DefaultSendBuffer   = 8
	DefaultWriteTimeout = 5 * time.Second
	DefaultPingInterval = 30 * time.Second

	maxCommandBytes = 4096
)

// Submitter accepts simulation inputs. *sim.Orchestrator implements it.
type Submitter interface {
	Submit(in sim.Input) bool
}

// Config tunes a Hub.
type Config struct {
	CommandRate  rate.Limit
	CommandBurst int
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	Logger       *logging.Logger
}

// Envelope is one outbound message.
type Envelope struct {
	Type    string           `json:"type"`
	Frame   *sim.FrameOutput `json:"frame,omitempty"`
	Message string           `json:"message,omitempty"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	addr    string

	// pending holds the scene writes of frames the client missed. It is
	// guarded by Hub.mu.
	pending *scene.Delta
}

// Hub fans frames out to every connected client and forwards their
// commands to a Submitter.
type Hub struct {
	cfg      Config
	target   Submitter
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	dropped atomic.Int64
}

// NewHub creates a hub forwarding commands to target.
func NewHub(target Submitter, cfg Config) *Hub {
	if cfg.CommandRate <= 0 {
		cfg.CommandRate = DefaultCommandRate
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = DefaultCommandBurst
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Hub{
		cfg:    cfg,
		target: target,
		log:    cfg.Logger,
		upgrader: websocket.Upgrader{
			// Renderers are served from another origin during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of messages skipped for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Broadcast queues a frame for every client. It never blocks: a client
// whose buffer is full misses this frame, but the frame's scene writes are
// kept and sent with the next frame that client accepts.
func (h *Hub) Broadcast(out sim.FrameOutput) error {
	msg, err := json.Marshal(Envelope{Type: "frame", Frame: &out})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.pending == nil {
			if !h.queue(c, msg) && out.Scene != nil {
				c.pending = out.Scene.Clone()
			}
			continue
		}
		c.pending.Merge(out.Scene)
		f := out
		f.Scene = c.pending
		caught, err := json.Marshal(Envelope{Type: "frame", Frame: &f})
		if err != nil {
			return err
		}
		if h.queue(c, caught) {
			c.pending = nil
		}
	}
	return nil
}

// queue must be called with h.mu held. It reports whether msg was queued.
func (h *Hub) queue(c *client, msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

func (h *Hub) reply(c *client, text string) {
	msg, err := json.Marshal(Envelope{Type: "error", Message: text})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.queue(c, msg)
	}
}

// ServeHTTP upgrades the request and serves the connection until it
// closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	c := &client{
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
		limiter: rate.NewLimiter(h.cfg.CommandRate, h.cfg.CommandBurst),
		addr:    r.RemoteAddr,
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("renderer connected: %s", c.addr)
	// Frames only carry scene changes, so a new renderer needs the whole
	// scene once.
	if !h.target.Submit(sim.Resync{}) {
		h.log.Warn("resync for %s dropped, input queue full", c.addr)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	<-done
	conn.Close()
	h.log.Info("renderer disconnected: %s", c.addr)
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxCommandBytes)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("read from %s: %v", c.addr, err)
			}
			return
		}
		if !c.limiter.Allow() {
			h.reply(c, "rate limited")
			continue
		}
		in, err := cmd.Input()
		if err != nil {
			h.reply(c, err.Error())
			continue
		}
		if !h.target.Submit(in) {
			h.reply(c, "busy")
		}
	}
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("write to %s: %v", c.addr, err)
				// Unblock readPump.
				c.conn.Close()
				h.drain(c)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				h.drain(c)
				return
			}
		}
	}
}

// drain discards queued messages until ServeHTTP closes the channel.
func (h *Hub) drain(c *client) {
	for range c.send {
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// NewServeMux routes the hub at /ws, metrics at /metrics and a liveness
// check at /healthz. A nil metrics handler leaves /metrics unrouted.
func NewServeMux(h *Hub, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
