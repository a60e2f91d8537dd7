package sim

import (
	"context"
	"time"

	"github.com/litescript/ls-orrery/internal/scene"
)

// DefaultFrameInterval paces Run at roughly 60 ticks per second.
const DefaultFrameInterval = time.Second / 60

// Publisher receives every frame a tick produced. It runs on the tick
// goroutine and must not block.
type Publisher func(FrameOutput)

// Run ticks o every interval until ctx is done, handing each produced
// frame to publish. Hidden ticks publish nothing.
func Run(ctx context.Context, o *Orchestrator, interval time.Duration, publish Publisher) {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Debug("simulation loop shutting down after %d frames", o.state.Frame)
			return
		case now := <-ticker.C:
			out, ok := o.Tick(now)
			if ok && publish != nil {
				publish(out)
			}
		}
	}
}

// Fanout returns a publisher that hands each frame to every target.
func Fanout(targets ...Publisher) Publisher {
	return func(out FrameOutput) {
		for _, t := range targets {
			if t != nil {
				t(out)
			}
		}
	}
}

// ChannelPublisher returns a publisher that offers frames on ch and skips
// them while the reader is behind. Scene writes of skipped frames are
// carried into the next frame that is delivered.
func ChannelPublisher(ch chan<- FrameOutput) Publisher {
	var pending *scene.Delta
	return func(out FrameOutput) {
		if pending != nil {
			pending.Merge(out.Scene)
			out.Scene = pending
		}
		select {
		case ch <- out:
			pending = nil
		default:
			if pending == nil && out.Scene != nil {
				pending = out.Scene.Clone()
			}
		}
	}
}
