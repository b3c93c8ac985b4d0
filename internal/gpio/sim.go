package gpio

import (
	"sync"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// SimSensor behaves like an HC-SR04 style module: a falling edge on the
// trigger starts an echo pulse whose width, in ticks, is the distance.
// It serves as both the echo and the trigger line of one sensor. High must be
// called once per tick.
type SimSensor struct {
	mu sync.Mutex

	// Distance returns the echo width for the next trigger.
	// A non-positive width means the echo is lost.
	Distance func() int

	// Delay is the number of ticks between the trigger falling and the echo rising.
	Delay int

	trig     bool
	armed    bool
	delay    int
	width    int
	triggers int
}

// NewSimSensor creates a SimSensor driven by distance.
func NewSimSensor(distance func() int) *SimSensor {
	return &SimSensor{Distance: distance}
}

// FixedDistance returns a distance source that always answers ticks.
func FixedDistance(ticks int) func() int {
	return func() int { return ticks }
}

// Set drives the trigger input. Triggers arriving while an echo is in
// progress are ignored, like the real module.
func (s *SimSensor) Set(high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	falling := s.trig && !high
	s.trig = high
	if !falling || s.armed {
		return
	}

	s.triggers++
	w := 0
	if s.Distance != nil {
		w = s.Distance()
	}
	if w <= 0 {
		return
	}
	s.armed = true
	s.delay = s.Delay
	s.width = w
}

// High advances the simulation by one tick and returns the echo level.
func (s *SimSensor) High() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed {
		return false
	}
	if s.delay > 0 {
		s.delay--
		return false
	}
	if s.width > 0 {
		s.width--
		return true
	}
	s.armed = false
	return false
}

// Triggers returns the number of trigger pulses accepted so far.
func (s *SimSensor) Triggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

// SimRig is a Rig made of two simulated sensors.
type SimRig struct {
	LeftSensor  *SimSensor
	RightSensor *SimSensor
}

// NewSimRig creates a SimRig answering fixed distances, in ticks.
func NewSimRig(left, right int) *SimRig {
	return &SimRig{
		LeftSensor:  NewSimSensor(FixedDistance(left)),
		RightSensor: NewSimSensor(FixedDistance(right)),
	}
}

// Left returns the lines of the left sensor.
func (r *SimRig) Left() ranging.Lines {
	return ranging.Lines{Echo: r.LeftSensor, Trigger: r.LeftSensor}
}

// Right returns the lines of the right sensor.
func (r *SimRig) Right() ranging.Lines {
	return ranging.Lines{Echo: r.RightSensor, Trigger: r.RightSensor}
}

// Close is a no-op.
func (r *SimRig) Close() error {
	return nil
}
