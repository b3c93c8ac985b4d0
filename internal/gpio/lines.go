package gpio

import "sync/atomic"

// ErrorCounter is implemented by rigs that count failed line reads and writes.
type ErrorCounter interface {
	Errors() uint64
}

// valueSetter is the part of a requested output line a trigger needs.
type valueSetter interface {
	SetValue(value int) error
}

// valueReader is the part of a requested input line an echo needs.
type valueReader interface {
	Value() (int, error)
}

// triggerLine drives a trigger output. Write errors are counted, since the
// cadence has no way to report them.
type triggerLine struct {
	line valueSetter
	errs *atomic.Uint64
}

func (t *triggerLine) Set(high bool) {
	v := 0
	if high {
		v = 1
	}
	if err := t.line.SetValue(v); err != nil {
		t.errs.Add(1)
	}
}

// readLevel reads an input once. A failed read counts as an error and low.
func readLevel(l valueReader, errs *atomic.Uint64) bool {
	v, err := l.Value()
	if err != nil {
		errs.Add(1)
		return false
	}
	return v == 1
}
