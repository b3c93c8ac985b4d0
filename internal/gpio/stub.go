//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// RealRig is not available on non-Linux platforms.
type RealRig struct{}

// NewRealRig returns an error on non-Linux platforms.
func NewRealRig(chipName string, pins Pins) (*RealRig, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Left is not implemented on non-Linux platforms.
func (r *RealRig) Left() ranging.Lines { return ranging.Lines{} }

// Right is not implemented on non-Linux platforms.
func (r *RealRig) Right() ranging.Lines { return ranging.Lines{} }

// Seek is not implemented on non-Linux platforms.
func (r *RealRig) Seek(at time.Time) {}

// Errors is not implemented on non-Linux platforms.
func (r *RealRig) Errors() uint64 { return 0 }

// Close is not implemented on non-Linux platforms.
func (r *RealRig) Close() error {
	return nil
}
