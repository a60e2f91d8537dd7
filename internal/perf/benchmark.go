package perf

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
)

// Benchmark defaults.
const (
	DefaultBenchWarmup   = 2 * time.Second
	DefaultBenchDuration = 12 * time.Second
	maxBenchSamples      = 4000
)

// BenchmarkResult summarizes a benchmark run.
type BenchmarkResult struct {
	Profile       string  `json:"profile"`
	Quality       string  `json:"quality"`
	DurationMs    int64   `json:"durationMs"`
	WarmupMs      int64   `json:"warmupMs"`
	AnimateTicks  int     `json:"animateTicks"`
	SampledFrames int     `json:"sampledFrames"`
	FPSAvg        float64 `json:"fpsAvg"`
	FrameMsAvg    float64 `json:"frameMsAvg"`
	FrameMsP95    float64 `json:"frameMsP95"`
	PixelRatio    float64 `json:"pixelRatio"`
}

// Summary renders a one-line human readable result.
func (r BenchmarkResult) Summary() string {
	return fmt.Sprintf("%s/%s: %s fps avg, %.2f ms avg, %.2f ms p95 over %s frames (dpr %.2f)",
		r.Profile, r.Quality,
		humanize.FtoaWithDigits(r.FPSAvg, 1),
		r.FrameMsAvg, r.FrameMsP95,
		humanize.Comma(int64(r.SampledFrames)),
		r.PixelRatio)
}

// WriteJSON writes the result as a single JSON line.
func (r BenchmarkResult) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

// Benchmark collects frame times after a warmup and finalizes once.
type Benchmark struct {
	Profile  string
	Quality  string
	Warmup   time.Duration
	Duration time.Duration

	started time.Time
	lastAt  time.Time
	ticks   int
	sumMs   float64
	count   int
	times   []float64
	done    bool
	result  BenchmarkResult
}

// NewBenchmark creates a benchmark starting at start.
func NewBenchmark(start time.Time, profile, quality string, warmup, duration time.Duration) *Benchmark {
	if duration < time.Second {
		duration = time.Second
	}
	if warmup < 0 {
		warmup = 0
	}
	return &Benchmark{
		Profile:  profile,
		Quality:  quality,
		Warmup:   warmup,
		Duration: duration,
		started:  start,
		lastAt:   start,
	}
}

// Done reports whether the result is final.
func (b *Benchmark) Done() bool { return b.done }

// Result returns the final result; ok is false until Done.
func (b *Benchmark) Result() (BenchmarkResult, bool) {
	return b.result, b.done
}

// Tick records a frame at now. It returns true on the frame that
// finalizes the run.
func (b *Benchmark) Tick(now time.Time, pixelRatio float64) bool {
	if b.done {
		return false
	}
	b.ticks++
	elapsed := now.Sub(b.started)
	frameMs := math.Max(0, float64(now.Sub(b.lastAt))/float64(time.Millisecond))
	b.lastAt = now

	if elapsed >= b.Warmup {
		b.sumMs += frameMs
		b.count++
		if len(b.times) < maxBenchSamples {
			b.times = append(b.times, frameMs)
		}
	}
	if elapsed >= b.Warmup+b.Duration {
		b.Finalize(now, pixelRatio)
		return true
	}
	return false
}

// Finalize computes the result. Later calls are no-ops.
func (b *Benchmark) Finalize(now time.Time, pixelRatio float64) BenchmarkResult {
	if b.done {
		return b.result
	}
	b.done = true

	elapsed := max(0, now.Sub(b.started)-b.Warmup)
	avg := 0.0
	if b.count > 0 {
		avg = b.sumMs / float64(b.count)
	}
	fps := 0.0
	if avg > 0 {
		fps = 1000 / avg
	}
	sorted := slices.Clone(b.times)
	slices.Sort(sorted)

	b.result = BenchmarkResult{
		Profile:       b.Profile,
		Quality:       b.Quality,
		DurationMs:    elapsed.Milliseconds(),
		WarmupMs:      b.Warmup.Milliseconds(),
		AnimateTicks:  b.ticks,
		SampledFrames: b.count,
		FPSAvg:        round(fps, 2),
		FrameMsAvg:    round(avg, 3),
		FrameMsP95:    round(PercentileSorted(sorted, 95), 3),
		PixelRatio:    round(pixelRatio, 2),
	}
	return b.result
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
