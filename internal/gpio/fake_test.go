package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeEchoHigh(t *testing.T) {
	f := NewFakeEcho(true, false, true)

	want := []bool{true, false, true, true, true}
	for i, w := range want {
		assert.Equal(t, w, f.High(), "read %d", i)
	}
}

func TestFakeEchoNoLevels(t *testing.T) {
	f := NewFakeEcho()

	assert.False(t, f.High(), "no levels configured reads low")
}

func TestFakeEchoReset(t *testing.T) {
	f := NewFakeEcho(true, false)

	f.High()
	f.High()
	f.Reset()

	assert.True(t, f.High(), "first level after reset")
}

func TestFakeTrigger(t *testing.T) {
	f := &FakeTrigger{}

	_, ok := f.Last()
	require.False(t, ok, "no writes initially")

	f.Set(true)
	f.Set(false)
	f.Set(false)
	f.Set(true)
	f.Set(true)

	high, ok := f.Last()
	assert.True(t, ok)
	assert.True(t, high)
	assert.Equal(t, 2, f.Pulses())
}

func TestFakeRigLines(t *testing.T) {
	r := NewFakeRig()
	r.LeftEcho.Levels = []bool{true}

	left, right := ReadLevels(r)
	assert.True(t, left)
	assert.False(t, right)

	r.Right().Trigger.Set(true)
	high, _ := r.RightTrigger.Last()
	assert.True(t, high, "right trigger write recorded")
	assert.Empty(t, r.LeftTrigger.Writes, "left trigger untouched")
}

func TestFakeRigClose(t *testing.T) {
	r := NewFakeRig()
	require.False(t, r.Closed)

	assert.NoError(t, r.Close())
	assert.True(t, r.Closed)

	r.CloseError = errors.New("simulated error")
	assert.Error(t, r.Close())
}

func TestFakeRigErrors(t *testing.T) {
	r := NewFakeRig()
	r.ErrorCount = 4

	var ec ErrorCounter = r
	assert.Equal(t, uint64(4), ec.Errors())
}

func TestDefaultPins(t *testing.T) {
	p := DefaultPins()

	seen := map[int]bool{}
	for _, pin := range []int{p.LeftEcho, p.LeftTrigger, p.RightEcho, p.RightTrigger} {
		assert.False(t, seen[pin], "pin %d assigned twice", pin)
		seen[pin] = true
	}
}
