package ranging

import "sync/atomic"

// testEcho is an echo line whose level the test sets directly.
type testEcho struct {
	level atomic.Bool
}

func (e *testEcho) High() bool { return e.level.Load() }
func (e *testEcho) set(high bool) { e.level.Store(high) }

// testTrigger records every level written to it.
type testTrigger struct {
	writes []bool
}

func (t *testTrigger) Set(high bool) { t.writes = append(t.writes, high) }

func (t *testTrigger) last() (bool, bool) {
	if len(t.writes) == 0 {
		return false, false
	}
	return t.writes[len(t.writes)-1], true
}

type rig struct {
	r                   *Ranger
	leftEcho, rightEcho *testEcho
	leftTrig, rightTrig *testTrigger
}

func newRig(p Params) (*rig, error) {
	g := &rig{
		leftEcho:  &testEcho{},
		rightEcho: &testEcho{},
		leftTrig:  &testTrigger{},
		rightTrig: &testTrigger{},
	}
	r, err := New(p,
		Lines{Echo: g.leftEcho, Trigger: g.leftTrig},
		Lines{Echo: g.rightEcho, Trigger: g.rightTrig},
	)
	if err != nil {
		return nil, err
	}
	g.r = r
	return g, nil
}

// echo raises each echo line for the given number of ticks, counted from a
// common rising edge, then ticks once more so both falling edges are seen.
// A width of zero leaves that line low.
func (g *rig) echo(left, right int) {
	n := max(left, right)
	for i := 1; i <= n+1; i++ {
		g.leftEcho.set(i <= left)
		g.rightEcho.set(i <= right)
		g.r.OnTick()
	}
}

// ticks advances the clock with both lines low.
func (g *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		g.r.OnTick()
	}
}
