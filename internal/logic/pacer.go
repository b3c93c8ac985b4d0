package logic

import (
	"time"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// Pacer rate-limits published readings. A reading goes out if it is the
// first one, if either sensor changed classification, or if the publish
// interval has elapsed since the last published reading.
type Pacer struct {
	interval      time.Duration
	startTime     time.Time
	seen          bool
	left          ranging.EchoState
	right         ranging.EchoState
	lastPublish   time.Time
	counts        PublishCounts
	lastHeartbeat time.Time
}

// NewPacer creates a Pacer. An interval <= 0 publishes every reading.
// The startTime is used for calculating uptime in heartbeat events.
func NewPacer(interval time.Duration, startTime time.Time) *Pacer {
	return &Pacer{
		interval:      interval,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process decides whether r should be published. r.Time is the reading time.
func (p *Pacer) Process(r ranging.Reading) Decision {
	changed := p.seen && (r.Left.State != p.left || r.Right.State != p.right)
	if changed {
		p.counts.StateChanges++
	}

	var reason Reason
	switch {
	case !p.seen:
		reason = ReasonFirst
	case changed:
		reason = ReasonStateChange
	case r.Time.Sub(p.lastPublish) >= p.interval:
		reason = ReasonInterval
	}

	p.seen = true
	p.left, p.right = r.Left.State, r.Right.State

	if reason == ReasonNone {
		p.counts.Suppressed++
		return Decision{}
	}
	p.lastPublish = r.Time
	p.counts.Published++
	return Decision{Publish: true, Reason: reason}
}

// Counts returns the publish counts since startup.
func (p *Pacer) Counts() PublishCounts {
	return p.counts
}

// Started reports whether at least one reading was processed.
func (p *Pacer) Started() bool {
	return p.seen
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil before the first reading, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (p *Pacer) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !p.seen {
		return nil
	}

	if now.Sub(p.lastHeartbeat) < interval {
		return nil
	}

	p.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(p.startTime),
		Counts:    p.counts,
	}
}
