//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

const consumer = "sonar-sensor"

// monotonicNow reads CLOCK_MONOTONIC, the clock edge events are stamped with.
func monotonicNow() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, err
	}
	return time.Duration(ts.Nano()), nil
}

// RealRig drives the sensors through the Linux GPIO character device.
// Echo levels come from kernel-timestamped edge events, so a tick sampled
// late still reads the level of its own instant.
type RealRig struct {
	chip     *gpiocdev.Chip
	lines    []*gpiocdev.Line
	timeline *Timeline
	left     ranging.Lines
	right    ranging.Lines
	errs     atomic.Uint64
}

// NewRealRig requests the four lines of the rig on the given chip.
func NewRealRig(chipName string, pins Pins) (*RealRig, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	epoch := time.Now()
	base, err := monotonicNow()
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("read monotonic clock: %w", err)
	}
	r := &RealRig{chip: chip, timeline: NewTimeline(epoch, base)}

	leftEcho, err := r.requestEcho("left echo", pins.LeftEcho)
	if err != nil {
		return nil, err
	}
	rightEcho, err := r.requestEcho("right echo", pins.RightEcho)
	if err != nil {
		return nil, err
	}
	leftTrig, err := r.request("left trigger", pins.LeftTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	rightTrig, err := r.request("right trigger", pins.RightTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}

	r.left = ranging.Lines{
		Echo:    leftEcho,
		Trigger: &triggerLine{line: leftTrig, errs: &r.errs},
	}
	r.right = ranging.Lines{
		Echo:    rightEcho,
		Trigger: &triggerLine{line: rightTrig, errs: &r.errs},
	}
	return r, nil
}

// requestEcho asks for an echo input with edge events on both edges. The
// pull-down makes a disconnected sensor read as "no echo".
func (r *RealRig) requestEcho(name string, offset int) (*EdgeEcho, error) {
	echo := NewEdgeEcho(r.timeline, false)
	handler := func(ev gpiocdev.LineEvent) {
		echo.Record(ev.Timestamp, ev.Type == gpiocdev.LineEventRisingEdge)
	}

	l, err := r.request(name, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithMonotonicEventClock,
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		return nil, err
	}

	echo.seed(readLevel(l, &r.errs))
	return echo, nil
}

// request asks for one line; on failure everything requested so far is released.
func (r *RealRig) request(name string, offset int, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
	l, err := r.chip.RequestLine(offset, opts...)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request %s pin %d: %w", name, offset, err)
	}
	r.lines = append(r.lines, l)
	return l, nil
}

// Left returns the lines of the left sensor.
func (r *RealRig) Left() ranging.Lines { return r.left }

// Right returns the lines of the right sensor.
func (r *RealRig) Right() ranging.Lines { return r.right }

// Seek moves the echo lines to the instant of the tick about to be sampled.
func (r *RealRig) Seek(at time.Time) { r.timeline.Seek(at) }

// Errors returns the number of failed line reads and writes so far.
func (r *RealRig) Errors() uint64 { return r.errs.Load() }

// Close releases GPIO resources.
// Every line is put back to input with pull-down (the Pi boot default) before
// closing, so the trigger outputs are not left driven.
func (r *RealRig) Close() error {
	var errs []error

	for _, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	r.lines = nil

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
