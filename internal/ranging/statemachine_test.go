package ranging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Inputs in table order: REC_TRIG, REC_NTRIG, NREC_TRIG, NREC_NTRIG.
var conformanceInputs = [4]Input{
	{Recording: true, TriggerPending: true},
	{Recording: true, TriggerPending: false},
	{Recording: false, TriggerPending: true},
	{Recording: false, TriggerPending: false},
}

type transition struct {
	next EchoState
	sent bool
}

var conformanceTable = map[EchoState][4]transition{
	EchoNextOK: {{EchoLong, false}, {EchoLong, false}, {EchoLost, true}, {EchoOK, true}},
	EchoOK:     {{EchoLong, false}, {EchoLong, false}, {EchoLost, true}, {EchoOK, true}},
	EchoLost:   {{EchoLong, false}, {EchoLong, false}, {EchoLost, true}, {EchoOK, true}},
	EchoLong:   {{EchoLong, false}, {EchoLong, false}, {EchoNextOK, true}, {EchoNextOK, true}},
}

func TestAdvanceConformance(t *testing.T) {
	for state, row := range conformanceTable {
		for i, in := range conformanceInputs {
			want := row[i]
			name := fmt.Sprintf("%s/rec=%v,trig=%v", state, in.Recording, in.TriggerPending)
			t.Run(name, func(t *testing.T) {
				next, sent := Advance(state, in)
				assert.Equal(t, want.next, next, "next state")
				assert.Equal(t, want.sent, sent, "trigger sent")
			})
		}
	}
}

func TestAdvanceRecordingAlwaysLong(t *testing.T) {
	for _, state := range []EchoState{EchoNextOK, EchoOK, EchoLost, EchoLong} {
		for _, pending := range []bool{true, false} {
			next, sent := Advance(state, Input{Recording: true, TriggerPending: pending})
			assert.Equal(t, EchoLong, next, "state %s pending %v", state, pending)
			assert.False(t, sent, "state %s pending %v", state, pending)
		}
	}
}

func TestAdvanceLostEcho(t *testing.T) {
	next, sent := Advance(EchoOK, Input{Recording: false, TriggerPending: true})
	assert.Equal(t, EchoLost, next)
	assert.True(t, sent)
}

func TestAdvanceLongIgnoresPendingTrigger(t *testing.T) {
	next, sent := Advance(EchoLong, Input{Recording: false, TriggerPending: true})
	assert.Equal(t, EchoNextOK, next)
	assert.True(t, sent)
}

func TestEchoStateString(t *testing.T) {
	tests := []struct {
		state EchoState
		want  string
	}{
		{EchoNextOK, "NEXT_OK"},
		{EchoOK, "OK"},
		{EchoLost, "LOST"},
		{EchoLong, "LONG"},
		{EchoState(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
		text, err := tt.state.MarshalText()
		assert.NoError(t, err)
		assert.Equal(t, tt.want, string(text))
	}
}
