package fusion

import (
	"sync/atomic"
	"time"

	"mec-fusion-go/internal/mecerr"
	"mec-fusion-go/internal/obslog"
	"mec-fusion-go/internal/queue"
)

// PeriodicInterval is the fixed ~50ms cadence of the periodic predict/evict
// path, per the spec's concurrency model.
const PeriodicInterval = 50 * time.Millisecond

// Loop drives both the engine's logical paths from one consumer goroutine:
// ingestion on queue pop, and the periodic predict/evict cycle on a ticker.
// running is checked at the top of every iteration; on it going false the
// loop drains nothing further and returns (outstanding queue entries are
// released by queue.Destroy, called by the owner).
type Loop struct {
	engine  *Engine
	q       *queue.Queue
	running *atomic.Bool
}

// NewLoop builds a Loop. running must be shared with whatever installs the
// signal handlers that clear it.
func NewLoop(engine *Engine, q *queue.Queue, running *atomic.Bool) *Loop {
	return &Loop{engine: engine, q: q, running: running}
}

// Run blocks until running is cleared. It pops with a short timeout so the
// running flag is re-checked promptly even when the queue is idle, and
// fires the periodic cycle on its own ticker independent of pop activity.
func (l *Loop) Run() {
	ticker := time.NewTicker(PeriodicInterval)
	defer ticker.Stop()

	for l.running.Load() {
		select {
		case <-ticker.C:
			l.engine.RunCycle(time.Now().UnixMicro())
		default:
		}

		msg, err := l.q.Pop(20)
		if err != nil {
			if err == mecerr.ErrQueueClosed {
				return
			}
			continue
		}
		l.engine.AddTracks(msg.SensorID, msg.Tracks)
		if msg.Tracks != nil {
			msg.Tracks.Release()
		}
	}
	obslog.L().Info("fusion: consumer loop exiting")
}
