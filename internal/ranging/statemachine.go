package ranging

// Input is what the state machine observes about a sensor when a new cycle starts.
type Input struct {
	// Recording is true while the sampler is still timing an echo.
	Recording bool
	// TriggerPending is true if the last trigger has not been answered yet.
	TriggerPending bool
}

// Advance closes the cycle for one sensor and returns its new state together
// with whether a new trigger may be sent.
//
//	state \ (rec,trig)  (1,1)     (1,0)     (0,1)        (0,0)
//	NEXT_OK             LONG,0    LONG,0    LOST,1       OK,1
//	OK                  LONG,0    LONG,0    LOST,1       OK,1
//	LOST                LONG,0    LONG,0    LOST,1       OK,1
//	LONG                LONG,0    LONG,0    NEXT_OK,1    NEXT_OK,1
func Advance(prev EchoState, in Input) (next EchoState, triggerSent bool) {
	pending := in.TriggerPending
	// No trigger goes out while LONG, so a pending flag there is stale.
	if prev == EchoLong {
		pending = false
	}

	switch {
	case in.Recording:
		next = EchoLong
	case pending:
		next = EchoLost
	case prev == EchoLong:
		next = EchoNextOK
	default:
		next = EchoOK
	}

	return next, next != EchoLong
}
