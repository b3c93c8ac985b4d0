// Package status provides a thread-safe status tracker for the sonar-sensor daemon.
// It is read by the HTTP handlers and by lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickPeriod        time.Duration
	CadenceTicks      int
	Params            ranging.Params
	Converter         ranging.Converter
	HeartbeatMs       int64
	PublishIntervalMs int64
	Broker            string
	HTTPPort          string
	SerialPort        string // empty = disabled
	Simulated         bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       ranging.Reading
	Counts        ranging.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	GPIOErrors    uint64
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one ranging cycle has completed.
func (s Snapshot) Ready() bool {
	return s.Counts.Cycles > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// Until the first Update the reading reports MaxTicks with both sensors in NEXT_OK.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	far := cfg.Params.MaxTicks
	return &Tracker{
		snap: Snapshot{
			Reading: ranging.Reading{
				Distance: far,
				Left:     ranging.SensorReading{Side: ranging.SideLeft, State: ranging.EchoNextOK, Distance: far},
				Right:    ranging.SensorReading{Side: ranging.SideRight, State: ranging.EchoNextOK, Distance: far},
			},
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the latest reading and classification counts.
// Called from runLoop after every completed cycle.
func (t *Tracker) Update(reading ranging.Reading, counts ranging.Counts) {
	t.mu.Lock()
	t.snap.Reading = reading
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetGPIOErrors records the number of failed GPIO line reads and writes.
func (t *Tracker) SetGPIOErrors(n uint64) {
	t.mu.Lock()
	t.snap.GPIOErrors = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
