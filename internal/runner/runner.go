// Package runner owns the engine's single update goroutine: it drains the
// tick queue fed by ingestion sources and is the only caller of
// core.Engine's UpdatePrice and FindArbitrageCycle, honouring the engine's
// single-owner, no-internal-locking contract.
package runner

import (
	"context"
	"time"

	"arbitrage/internal/core"
	"arbitrage/internal/ingest"
	"arbitrage/internal/metrics"
	"arbitrage/pkg/queue"
	"arbitrage/pkg/utils"
)

// CycleSink receives a cycle report as soon as FindArbitrageCycle detects
// one. Implementations (the WebSocket hub, the /api/v1/cycles/last cache)
// must not block for long: they run synchronously on the owner goroutine.
type CycleSink interface {
	PublishCycle(core.CycleReport)
}

// Runner drains a TickQueue, applying each tick to Engine and checking for
// a newly formed negative cycle after every update.
type Runner struct {
	engine *core.Engine
	queue  *queue.TickQueue
	sink   CycleSink
	logger *utils.Logger
}

// New builds a Runner over an already-constructed Engine and TickQueue.
func New(engine *core.Engine, q *queue.TickQueue, sink CycleSink, logger *utils.Logger) *Runner {
	return &Runner{engine: engine, queue: q, sink: sink, logger: logger}
}

// Run blocks, processing queued ticks until ctx is cancelled or the queue
// yields queue.Stop. It is the single goroutine expected to ever call
// Engine.UpdatePrice / Engine.FindArbitrageCycle.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-r.queue.Chan():
			if !ok {
				return
			}
			if raw == queue.Stop {
				return
			}
			r.process(raw)
		}
	}
}

func (r *Runner) process(raw string) {
	start := time.Now()

	tick, err := ingest.DecodeTick([]byte(raw))
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("runner: malformed tick payload", utils.Err(err))
		}
		metrics.RecordTickRejected("malformed_payload")
		return
	}

	if err := r.engine.UpdatePrice(tick.Symbol, tick.Price); err != nil {
		if r.logger != nil {
			r.logger.Debug("runner: rejected tick",
				utils.Symbol(tick.Symbol),
				utils.Price(tick.Price),
				utils.Err(err),
			)
		}
		metrics.RecordTickRejected(core.ErrorKind(err))
		return
	}

	cycle, found := r.engine.FindArbitrageCycle()
	metrics.RecordTickProcessed(float64(time.Since(start).Microseconds()) / 1000.0)

	if !found {
		return
	}

	metrics.RecordCycleDetected()
	report := core.CycleReport{Cycle: cycle, DetectedAt: time.Now()}

	if r.logger != nil {
		r.logger.Info("arbitrage cycle detected",
			utils.CycleLength(len(cycle)),
			utils.Any("cycle", cycle),
		)
	}

	if r.sink != nil {
		r.sink.PublishCycle(report)
	}
}
