package gpio

import "github.com/sweeney/sonar-sensor/internal/ranging"

// FakeEcho is a test double that returns scripted echo levels.
type FakeEcho struct {
	// Levels contains scripted values to return.
	// Each call to High() consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int
}

// NewFakeEcho creates a FakeEcho with the given levels.
func NewFakeEcho(levels ...bool) *FakeEcho {
	return &FakeEcho{Levels: levels}
}

// High returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
// With no levels configured the line reads low.
func (f *FakeEcho) High() bool {
	if len(f.Levels) == 0 {
		return false
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level
}

// Reset rewinds to the beginning of Levels.
func (f *FakeEcho) Reset() {
	f.index = 0
}

// FakeTrigger records every value written to it.
type FakeTrigger struct {
	Writes []bool
}

// Set records the written level.
func (f *FakeTrigger) Set(high bool) {
	f.Writes = append(f.Writes, high)
}

// Last returns the last written level. ok is false if nothing was written.
func (f *FakeTrigger) Last() (high, ok bool) {
	if len(f.Writes) == 0 {
		return false, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Pulses counts low-to-high transitions, starting from low.
func (f *FakeTrigger) Pulses() int {
	n := 0
	prev := false
	for _, w := range f.Writes {
		if w && !prev {
			n++
		}
		prev = w
	}
	return n
}

// FakeRig is a Rig built from fakes.
type FakeRig struct {
	LeftEcho     *FakeEcho
	LeftTrigger  *FakeTrigger
	RightEcho    *FakeEcho
	RightTrigger *FakeTrigger

	// Closed tracks if Close was called
	Closed bool

	// CloseError, if set, will be returned by Close()
	CloseError error

	// ErrorCount is returned by Errors
	ErrorCount uint64
}

// NewFakeRig creates a FakeRig whose echo lines read low.
func NewFakeRig() *FakeRig {
	return &FakeRig{
		LeftEcho:     NewFakeEcho(),
		LeftTrigger:  &FakeTrigger{},
		RightEcho:    NewFakeEcho(),
		RightTrigger: &FakeTrigger{},
	}
}

// Errors returns ErrorCount.
func (f *FakeRig) Errors() uint64 {
	return f.ErrorCount
}

// Left returns the lines of the left sensor.
func (f *FakeRig) Left() ranging.Lines {
	return ranging.Lines{Echo: f.LeftEcho, Trigger: f.LeftTrigger}
}

// Right returns the lines of the right sensor.
func (f *FakeRig) Right() ranging.Lines {
	return ranging.Lines{Echo: f.RightEcho, Trigger: f.RightTrigger}
}

// Close marks the rig as closed.
func (f *FakeRig) Close() error {
	f.Closed = true
	return f.CloseError
}
