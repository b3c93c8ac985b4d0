// Package logic decides which ranging readings leave the daemon and when a
// heartbeat is due.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Reason explains why a reading is published.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonFirst       Reason = "FIRST"
	ReasonStateChange Reason = "STATE_CHANGE"
	ReasonInterval    Reason = "INTERVAL"
)

// Decision is the outcome of processing one reading.
type Decision struct {
	Publish bool
	Reason  Reason
}

// PublishCounts tracks readings since startup.
type PublishCounts struct {
	Published    int
	Suppressed   int
	StateChanges int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    PublishCounts
}
