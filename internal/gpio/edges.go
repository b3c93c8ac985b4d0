package gpio

import (
	"sync"
	"sync/atomic"
	"time"
)

// Seeker is implemented by rigs whose echo levels are looked up at the
// instant of each tick instead of being read live. The sampling loop seeks
// the rig before every OnTick, so ticks replayed after a late wake-up still
// see the level the line had at their own instant.
type Seeker interface {
	Seek(at time.Time)
}

// Timeline maps sampler instants onto the clock the kernel stamps edge
// events with. epoch and base are the same instant read from both clocks.
type Timeline struct {
	epoch time.Time
	base  time.Duration
	at    atomic.Int64
}

// NewTimeline creates a Timeline where epoch corresponds to base on the
// event clock. It starts at base.
func NewTimeline(epoch time.Time, base time.Duration) *Timeline {
	tl := &Timeline{epoch: epoch, base: base}
	tl.at.Store(int64(base))
	return tl
}

// Seek moves the timeline to t.
func (tl *Timeline) Seek(t time.Time) {
	tl.at.Store(int64(tl.base + t.Sub(tl.epoch)))
}

// Now returns the current instant on the event clock.
func (tl *Timeline) Now() time.Duration {
	return time.Duration(tl.at.Load())
}

// maxEdges bounds the history kept by an EdgeEcho. At the default 10µs tick
// a sensor produces two edges per cycle, so this covers several seconds of
// stalled sampling.
const maxEdges = 1024

type edge struct {
	at   time.Duration
	high bool
}

// EdgeEcho is an echo line answered from timestamped edge events. Record is
// called from the event goroutine; High from the sampler.
type EdgeEcho struct {
	clock *Timeline

	mu    sync.Mutex
	level bool // level before the first kept edge
	edges []edge
}

// NewEdgeEcho creates an EdgeEcho that reads at clock's instant and starts
// at the given level.
func NewEdgeEcho(clock *Timeline, initial bool) *EdgeEcho {
	return &EdgeEcho{clock: clock, level: initial}
}

// seed sets the starting level unless an edge has already been recorded.
func (e *EdgeEcho) seed(high bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.edges) == 0 {
		e.level = high
	}
}

// Record adds an edge. Edges must arrive in timestamp order.
func (e *EdgeEcho) Record(at time.Duration, high bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.edges) == maxEdges {
		e.level = e.edges[0].high
		e.edges = e.edges[1:]
	}
	e.edges = append(e.edges, edge{at: at, high: high})
}

// High returns the level at the timeline's current instant. Edges before
// that instant are folded into the base level, so the timeline must only
// move forward.
func (e *EdgeEcho) High() bool {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for n < len(e.edges) && e.edges[n].at <= now {
		e.level = e.edges[n].high
		n++
	}
	if n > 0 {
		e.edges = append(e.edges[:0], e.edges[n:]...)
	}
	return e.level
}

// Pending returns the number of edges not yet reached by the timeline.
func (e *EdgeEcho) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.edges)
}
