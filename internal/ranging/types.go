// Package ranging contains the dual ultrasonic ranging core: the per-tick echo
// sampler, the echo-state machine, the two-phase trigger protocol and the fusion
// of both sensors into a single distance.
// This package has NO external dependencies (no GPIO drivers, MQTT, OS, or clocks).
// All distances are expressed in ticks of the sampling clock.
package ranging

import (
	"errors"
	"fmt"
	"time"
)

// EchoState classifies how much the last measurement of a sensor can be trusted.
type EchoState uint32

const (
	// EchoNextOK: the previous echo was unusable but the next one should be fine.
	EchoNextOK EchoState = iota
	// EchoOK: the previous echo was valid and used.
	EchoOK
	// EchoLost: a trigger was sent but no echo came back in time.
	EchoLost
	// EchoLong: the echo was still being timed when the new cycle began.
	EchoLong
)

var echoStateNames = [...]string{"NEXT_OK", "OK", "LOST", "LONG"}

func (s EchoState) String() string {
	if int(s) < len(echoStateNames) {
		return echoStateNames[s]
	}
	return "UNKNOWN"
}

// MarshalText renders the state by name in JSON and YAML output.
func (s EchoState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Side identifies one of the two sensors on the arm.
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// EchoLine is the digital input a sensor raises for the duration of its echo.
type EchoLine interface {
	// High reports the instantaneous logic level of the line.
	High() bool
}

// TriggerLine is the digital output that starts a measurement.
type TriggerLine interface {
	Set(high bool)
}

// Lines groups the two signals wired to one sensor.
type Lines struct {
	Echo    EchoLine
	Trigger TriggerLine
}

// Defaults for the reference rig: a 10µs system tick, sound at 340 m/s,
// a 7 m range and the sensors mounted 3.4 cm apart.
const (
	DefaultTickPeriod      = 10 * time.Microsecond
	DefaultSpeedOfSound    = 340
	DefaultMaxTicks        = 41200 / 10
	DefaultSeparationTicks = 20
	DefaultMargin          = 0.8
)

// Params configures the ranging core.
type Params struct {
	// MaxTicks is the largest distance the rig reports; it also means "nothing in sight".
	MaxTicks int
	// SeparationTicks is the distance between the two sensors, in ticks.
	SeparationTicks int
	// DisjointMargin scales SeparationTicks into the threshold above which the
	// two readings are taken to be two different objects.
	DisjointMargin float64
	// SmoothingFactor is the weight of the new raw distance in the exponential filter.
	SmoothingFactor float64
}

// DefaultParams returns the parameters of the reference rig. Both coefficients
// are 0.8 so the filter reproduces the behaviour of a single shared margin.
func DefaultParams() Params {
	return Params{
		MaxTicks:        DefaultMaxTicks,
		SeparationTicks: DefaultSeparationTicks,
		DisjointMargin:  DefaultMargin,
		SmoothingFactor: DefaultMargin,
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	if p.MaxTicks <= 0 {
		return fmt.Errorf("max ticks must be positive, got %d", p.MaxTicks)
	}
	if p.SeparationTicks < 0 {
		return fmt.Errorf("separation must not be negative, got %d", p.SeparationTicks)
	}
	if p.DisjointMargin <= 0 || p.DisjointMargin > 1 {
		return fmt.Errorf("disjoint margin must be in (0, 1], got %v", p.DisjointMargin)
	}
	if p.SmoothingFactor <= 0 || p.SmoothingFactor > 1 {
		return fmt.Errorf("smoothing factor must be in (0, 1], got %v", p.SmoothingFactor)
	}
	return nil
}

func (p Params) fuseParams() FuseParams {
	return FuseParams{Max: p.MaxTicks, Separation: p.SeparationTicks, Margin: p.DisjointMargin}
}

var errMissingLine = errors.New("sensor line not configured")

// SensorReading is the observable state of one sensor at the end of a cycle.
type SensorReading struct {
	Side     Side
	State    EchoState
	Distance int // last usable distance in ticks
}

// Reading is the outcome of one trigger cycle.
type Reading struct {
	// Time is left zero by the core; callers stamp it with their own clock.
	Time     time.Time
	Cycle    uint64
	Distance int // fused distance in ticks
	Left     SensorReading
	Right    SensorReading
}

// EchoCounts tracks how many cycles ended in each state.
type EchoCounts struct {
	OK     int
	NextOK int
	Lost   int
	Long   int
}

func (c *EchoCounts) add(s EchoState) {
	switch s {
	case EchoOK:
		c.OK++
	case EchoNextOK:
		c.NextOK++
	case EchoLost:
		c.Lost++
	case EchoLong:
		c.Long++
	}
}

// Counts holds the per-sensor classification counts since startup.
type Counts struct {
	Cycles uint64
	Left   EchoCounts
	Right  EchoCounts
}
