// Package gpio provides the echo and trigger lines of the ranging rig.
// The real implementation uses the Linux GPIO character device.
// The fake and simulated implementations allow testing without hardware.
package gpio

import "github.com/sweeney/sonar-sensor/internal/ranging"

// Rig exposes the lines wired to both sensors.
type Rig interface {
	Left() ranging.Lines
	Right() ranging.Lines

	// Close releases GPIO resources.
	Close() error
}

// Pins holds BCM line offsets for both sensors.
type Pins struct {
	LeftEcho     int
	LeftTrigger  int
	RightEcho    int
	RightTrigger int
}

// Default pin assignment (BCM numbering).
const (
	DefaultChip         = "gpiochip0"
	DefaultLeftEcho     = 24
	DefaultLeftTrigger  = 23
	DefaultRightEcho    = 27
	DefaultRightTrigger = 17
)

// DefaultPins returns the default pin assignment.
func DefaultPins() Pins {
	return Pins{
		LeftEcho:     DefaultLeftEcho,
		LeftTrigger:  DefaultLeftTrigger,
		RightEcho:    DefaultRightEcho,
		RightTrigger: DefaultRightTrigger,
	}
}

// ReadLevels reads both echo lines once. Used by --print-state.
func ReadLevels(r Rig) (left, right bool) {
	return r.Left().Echo.High(), r.Right().Echo.High()
}
