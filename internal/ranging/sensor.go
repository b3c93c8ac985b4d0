package ranging

import (
	"math"
	"sync/atomic"
)

// Sensor is one echo-ranging unit.
//
// Sample runs in the tick context and is the only writer of recording and
// tickCounter. The trigger cadence owns state. triggerPending and lastDistance
// are touched by both contexts, so every shared field is atomic.
type Sensor struct {
	side     Side
	echo     EchoLine
	trigger  TriggerLine
	maxTicks int32

	triggerPending atomic.Bool
	recording      atomic.Bool
	lastDistance   atomic.Int32
	state          atomic.Uint32

	tickCounter uint32
}

func newSensor(side Side, lines Lines, maxTicks int) *Sensor {
	s := &Sensor{
		side:     side,
		echo:     lines.Echo,
		trigger:  lines.Trigger,
		maxTicks: int32(maxTicks),
	}
	s.lastDistance.Store(int32(maxTicks))
	s.state.Store(uint32(EchoNextOK))
	return s
}

// Sample reads the echo line once and advances the recording fields.
// It must be called exactly once per tick.
func (s *Sensor) Sample() {
	high := s.echo.High()

	if s.recording.Load() {
		if s.tickCounter != math.MaxUint32 {
			s.tickCounter++
		}
		if !high {
			s.recording.Store(false)
			if st := s.State(); st == EchoOK || st == EchoNextOK {
				d := s.tickCounter
				if d > uint32(s.maxTicks) {
					d = uint32(s.maxTicks)
				}
				s.lastDistance.Store(int32(d))
			}
		}
		return
	}

	if high && s.triggerPending.Load() {
		// Rising edge. recording is published before the pending flag is
		// cleared so the cadence never sees both false mid-edge.
		s.tickCounter = 0
		s.recording.Store(true)
		s.triggerPending.Store(false)
	}
}

// closeCycle runs the state machine for this sensor and drives its trigger.
// Called from the cadence context only.
func (s *Sensor) closeCycle() EchoState {
	// pending is loaded before recording, mirroring the store order in Sample.
	pending := s.triggerPending.Load()
	recording := s.recording.Load()

	next, sent := Advance(s.State(), Input{Recording: recording, TriggerPending: pending})
	s.state.Store(uint32(next))
	s.triggerPending.Store(sent)
	s.trigger.Set(sent)
	return next
}

// Side reports which sensor this is.
func (s *Sensor) Side() Side { return s.side }

// State returns the current echo classification.
func (s *Sensor) State() EchoState { return EchoState(s.state.Load()) }

// LastDistance returns the last usable distance in ticks.
func (s *Sensor) LastDistance() int { return int(s.lastDistance.Load()) }

// Recording reports whether an echo is being timed right now.
func (s *Sensor) Recording() bool { return s.recording.Load() }

// TriggerPending reports whether a trigger is still waiting for its echo.
func (s *Sensor) TriggerPending() bool { return s.triggerPending.Load() }

func (s *Sensor) reading() SensorReading {
	return SensorReading{Side: s.side, State: s.State(), Distance: s.LastDistance()}
}
