package ranging

import (
	"fmt"
	"sync/atomic"
)

// Ranger is the ranging context shared by the tick callback (OnTick) and the
// trigger cadence callback (OnTriggerCadence). The two may run on different
// goroutines; OnTick may interleave with OnTriggerCadence at any point.
// OnTriggerCadence, Snapshot and Counts must not be called concurrently with
// each other.
type Ranger struct {
	params Params
	left   *Sensor
	right  *Sensor

	fused       atomic.Int32
	assertPhase bool
	cycle       uint64
	counts      Counts

	// preempt runs between the two distance loads of the fusion step.
	preempt func()
}

// New creates a Ranger with both sensors in NEXT_OK and every distance at MaxTicks.
// The first OnTriggerCadence call asserts the triggers.
func New(p Params, left, right Lines) (*Ranger, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	for side, l := range map[Side]Lines{SideLeft: left, SideRight: right} {
		if l.Echo == nil || l.Trigger == nil {
			return nil, fmt.Errorf("%s sensor: %w", side, errMissingLine)
		}
	}

	r := &Ranger{
		params:      p,
		left:        newSensor(SideLeft, left, p.MaxTicks),
		right:       newSensor(SideRight, right, p.MaxTicks),
		assertPhase: true,
	}
	r.fused.Store(int32(p.MaxTicks))
	return r, nil
}

// OnTick samples both echo lines. Call once per tick.
func (r *Ranger) OnTick() {
	r.left.Sample()
	r.right.Sample()
}

// OnTriggerCadence alternates between asserting and releasing the triggers.
// On the assert half it closes the previous cycle for both sensors, fires the
// triggers they are allowed to send and publishes a new fused distance, which
// is returned with ok set. The release half only drops the trigger lines.
func (r *Ranger) OnTriggerCadence() (reading Reading, ok bool) {
	assert := r.assertPhase
	r.assertPhase = !r.assertPhase

	if !assert {
		r.left.trigger.Set(false)
		r.right.trigger.Set(false)
		return Reading{}, false
	}

	r.counts.Left.add(r.left.closeCycle())
	r.counts.Right.add(r.right.closeCycle())
	r.updateDistance()

	r.cycle++
	r.counts.Cycles = r.cycle
	return r.Snapshot(), true
}

// updateDistance recomputes the fused distance from the sensors' last distances.
// The tick context may store a new distance between the two loads.
func (r *Ranger) updateDistance() {
	leftOK := r.left.State() == EchoOK
	rightOK := r.right.State() == EchoOK

	dl := r.left.LastDistance()
	if r.preempt != nil {
		r.preempt()
	}
	dr := r.right.LastDistance()

	prev := int(r.fused.Load())
	max := r.params.MaxTicks

	var raw int
	switch {
	case !leftOK && !rightOK:
		raw = prev
	case !leftOK:
		raw = clamp(dr, max)
	case !rightOK:
		raw = clamp(dl, max)
	default:
		raw = Fuse(dl, dr, r.params.fuseParams())
	}

	r.fused.Store(int32(Smooth(prev, raw, r.params.SmoothingFactor, max)))
}

// FusedDistance returns the last published distance in ticks. Safe from any goroutine.
func (r *Ranger) FusedDistance() int {
	return int(r.fused.Load())
}

// Snapshot returns the current fused distance and per-sensor classification.
func (r *Ranger) Snapshot() Reading {
	return Reading{
		Cycle:    r.cycle,
		Distance: r.FusedDistance(),
		Left:     r.left.reading(),
		Right:    r.right.reading(),
	}
}

// Counts returns the classification counts since startup.
func (r *Ranger) Counts() Counts {
	return r.counts
}

// Params returns the parameters the Ranger was built with.
func (r *Ranger) Params() Params {
	return r.params
}

// Sensor returns the sensor on the given side, or nil.
func (r *Ranger) Sensor(side Side) *Sensor {
	switch side {
	case SideLeft:
		return r.left
	case SideRight:
		return r.right
	}
	return nil
}
