package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/litescript/ls-orrery/internal/bridge"
	"github.com/litescript/ls-orrery/internal/config"
	"github.com/litescript/ls-orrery/internal/ephem"
	"github.com/litescript/ls-orrery/internal/logging"
	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/pointcloud"
	"github.com/litescript/ls-orrery/internal/scene"
	"github.com/litescript/ls-orrery/internal/sim"
	"github.com/litescript/ls-orrery/internal/telemetry"
	"github.com/litescript/ls-orrery/internal/ui"
)

type runOptions struct {
	headless bool
	runFor   time.Duration
	logFile  string
}

const shutdownTimeout = 5 * time.Second

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	headless := opts.headless || !term.IsTerminal(int(os.Stdout.Fd()))
	if !headless {
		// Log lines would tear the alternate screen.
		if opts.logFile == "" {
			logger.SetOutput(io.Discard)
		} else {
			f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logger.SetOutput(f)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sinks, err := openSinks(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	events := telemetry.NewEmitter(logger, sinks)
	events.Start(ctx)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn("close telemetry: %v", err)
		}
	}()
	logger.Debug("telemetry session %s with %d sinks", events.Session(), len(sinks))

	simCfg, err := sim.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	clouds := pointcloud.NewGenerator(pointcloud.Config{
		Seed:   simCfg.Seed,
		Async:  cfg.WorkerClouds,
		Logger: logger,
	})
	clouds.Start(ctx)
	defer clouds.Close()

	metrics := perf.NewMetrics()
	orch, err := sim.New(ctx, simCfg, sim.Deps{
		Sink:      scene.NewCollector(),
		Store:     ephem.NewStore(newLoader(cfg.Ephemeris)),
		Telemetry: events,
		Metrics:   metrics,
		Clouds:    clouds,
		Logger:    logger,
	}, time.Now())
	if err != nil {
		return err
	}
	defer orch.Close()

	var publishers []sim.Publisher
	if cfg.Bridge.Addr != "" {
		hub := bridge.NewHub(orch, bridge.Config{Logger: logger})
		defer hub.Close()
		stop := serve(cfg.Bridge.Addr, bridge.NewServeMux(hub, metrics.Handler()), logger)
		defer stop()
		publishers = append(publishers, bridgePublisher(hub, logger))
	}
	if cfg.Metrics.Addr != "" && cfg.Metrics.Addr != cfg.Bridge.Addr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		stop := serve(cfg.Metrics.Addr, mux, logger)
		defer stop()
	}

	if headless {
		return runHeadless(ctx, orch, sim.Fanout(publishers...), cfg.Benchmark.Enabled, opts.runFor, os.Stdout, logger)
	}
	return runTUI(ctx, orch, publishers, cfg)
}

func runTUI(ctx context.Context, orch *sim.Orchestrator, publishers []sim.Publisher, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan sim.FrameOutput, 1)
	publish := sim.Fanout(append(publishers, sim.ChannelPublisher(frames))...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sim.Run(ctx, orch, sim.DefaultFrameInterval, publish)
	}()

	model := ui.New(orch, frames, ui.Options{AutoRotate: cfg.AutoRotate && !cfg.StaticFrame})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	_, err := p.Run()

	cancel()
	<-done
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// runHeadless ticks until ctx is done, runFor elapses, or a requested
// benchmark finishes. The benchmark result, or the last frame, is written
// to out as JSON.
func runHeadless(ctx context.Context, orch *sim.Orchestrator, publish sim.Publisher, bench bool, runFor time.Duration, out io.Writer, logger *logging.Logger) error {
	var cancel context.CancelFunc
	if runFor > 0 {
		ctx, cancel = context.WithTimeout(ctx, runFor)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		last   sim.FrameOutput
		result *perf.BenchmarkResult
	)
	sim.Run(ctx, orch, sim.DefaultFrameInterval, sim.Fanout(publish, func(f sim.FrameOutput) {
		last = f
		if p := f.Panel; p != nil {
			logger.Info("frame %d: %.1f fps, %.1f ms, ratio %.2f, distance %.0f", f.Frame, p.FPS, p.LastFrameMs, p.PixelRatio, f.Distance)
		}
		if f.Benchmark != nil {
			result = f.Benchmark
			logger.Info("benchmark: %s", result.Summary())
			if bench {
				cancel()
			}
		}
	}))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if result != nil {
		return enc.Encode(result)
	}
	if bench {
		return errors.New("benchmark did not finish")
	}
	last.Bodies = nil
	last.Scene = nil
	return enc.Encode(last)
}

// bridgePublisher hands every frame, scene changes included, to the
// connected renderers.
func bridgePublisher(hub *bridge.Hub, logger *logging.Logger) sim.Publisher {
	return func(out sim.FrameOutput) {
		if err := hub.Broadcast(out); err != nil {
			logger.Warn("broadcast frame %d: %v", out.Frame, err)
		}
	}
}

// serve starts an HTTP server in the background and returns its shutdown
// function.
func serve(addr string, h http.Handler, logger *logging.Logger) func() {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server %s: %v", addr, err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("shutdown %s: %v", addr, err)
		}
	}
}

func newLoader(cfg config.Ephemeris) ephem.Loader {
	switch cfg.Source {
	case config.SourceHTTP:
		return ephem.NewHTTPLoader(cfg.URL, ephem.WithTimeout(cfg.Timeout))
	case config.SourceHorizons:
		return ephem.NewHorizonsClient(ephem.WithHorizonsHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	default:
		return ephem.FileLoader{Path: cfg.Path}
	}
}

func openSinks(cfg config.Telemetry, logger *logging.Logger) ([]telemetry.Sink, error) {
	var sinks []telemetry.Sink
	if cfg.Log {
		sinks = append(sinks, telemetry.LogSink{Log: logger})
	}
	if cfg.SQLitePath != "" {
		s, err := telemetry.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			for _, open := range sinks {
				open.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Endpoint != "" {
		sinks = append(sinks, telemetry.NewHTTPSink(cfg.Endpoint, nil))
	}
	if cfg.Influx.URL != "" {
		sinks = append(sinks, telemetry.NewInfluxSink(telemetry.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		}))
	}
	return sinks, nil
}
