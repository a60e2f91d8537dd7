package pointcloud

import (
	"context"
	"sync"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/litescript/ls-orrery/internal/logging"
)

// DefaultQueueSize bounds pending requests and undelivered results.
const DefaultQueueSize = 16

// Request is one queued cloud.
type Request struct {
	ID   string
	Spec Spec
	Seed uint32
}

// Result carries a finished buffer back to the frame loop.
type Result struct {
	ID        string
	Object    string
	Positions []float32
}

// Config configures a Generator.
type Config struct {
	Seed      uint32
	Async     bool
	QueueSize int
	Logger    *logging.Logger
}

// Generator produces cloud buffers either on a worker goroutine or inline.
// Submit and Drain are called from the frame loop only.
type Generator struct {
	seed  uint32
	async bool
	log   *logging.Logger

	reqs    chan Request
	results chan Result
	quit    chan struct{}
	pending []Result
	started bool

	wg   sync.WaitGroup
	once sync.Once
}

// NewGenerator creates a generator. Async generators need Start.
func NewGenerator(cfg Config) *Generator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Generator{
		seed:    cfg.Seed,
		async:   cfg.Async,
		log:     cfg.Logger,
		reqs:    make(chan Request, cfg.QueueSize),
		results: make(chan Result, cfg.QueueSize),
		quit:    make(chan struct{}),
	}
}

// Async reports whether clouds are built off the frame loop.
func (g *Generator) Async() bool {
	return g.async && g.started
}

// Start launches the worker goroutine. It exits when ctx is done or Close
// is called.
func (g *Generator) Start(ctx context.Context) {
	if !g.async || g.started {
		return
	}
	g.started = true
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-g.quit:
				return
			case req := <-g.reqs:
				res := build(req)
				select {
				case g.results <- res:
				case <-ctx.Done():
					return
				case <-g.quit:
					return
				}
			}
		}
	}()
}

// Close stops the worker and waits for it. Later submissions are built
// inline.
func (g *Generator) Close() {
	g.once.Do(func() {
		close(g.quit)
	})
	g.wg.Wait()
	g.started = false
}

// Submit queues spec and returns its request id. Without a running worker,
// or when the queue is full, the buffer is built inline and handed out by
// the next Drain.
func (g *Generator) Submit(spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	req := Request{
		ID:   uuid.NewString(),
		Spec: spec,
		Seed: derive(g.seed, spec.Object),
	}
	if g.Async() {
		select {
		case g.reqs <- req:
			g.log.Debug("queued cloud %s (%d points) as %s", spec.Object, spec.Count, req.ID)
			return req.ID, nil
		default:
			g.log.Warn("cloud queue full, building %s inline", spec.Object)
		}
	}
	g.pending = append(g.pending, build(req))
	return req.ID, nil
}

// Drain returns every finished buffer without blocking.
func (g *Generator) Drain() []Result {
	out := g.pending
	g.pending = nil
	for {
		select {
		case res := <-g.results:
			out = append(out, res)
		default:
			return out
		}
	}
}

func build(req Request) Result {
	src := NewSource(req.Seed)
	noiseSeed := int64(req.Seed)
	if noiseSeed == 0 {
		noiseSeed = int64(src.Float64() * (1 << 31))
	}
	return Result{
		ID:        req.ID,
		Object:    req.Spec.Object,
		Positions: Generate(req.Spec, src, opensimplex.New(noiseSeed)),
	}
}
