package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while disconnected.
// Lifecycle events queue in a fixed-capacity ring that drops the oldest on
// overflow. A distance reading supersedes the previous one, so only the
// latest is kept. Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	ring    []bufferedMsg
	head    int // next write position
	count   int
	dropped int // events lost since last drain

	latest    bufferedMsg
	hasLatest bool
}

func newOutbox(capacity int) *outbox {
	return &outbox{ring: make([]bufferedMsg, capacity)}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.topic == Topic {
		o.latest = msg
		o.hasLatest = true
		return
	}

	if o.count == len(o.ring) {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d events), dropping oldest", len(o.ring))
		}
		o.dropped++
		o.ring[o.head] = msg
		o.head = (o.head + 1) % len(o.ring)
		return
	}
	o.ring[o.head] = msg
	o.head = (o.head + 1) % len(o.ring)
	o.count++
}

// drainAll returns the queued events oldest first, followed by the latest
// reading, and empties the outbox.
func (o *outbox) drainAll() []bufferedMsg {
	n := o.len()
	if n == 0 {
		return nil
	}

	result := make([]bufferedMsg, 0, n)
	start := (o.head - o.count + len(o.ring)) % len(o.ring)
	for i := 0; i < o.count; i++ {
		result = append(result, o.ring[(start+i)%len(o.ring)])
	}
	if o.hasLatest {
		result = append(result, o.latest)
	}

	if o.dropped > 0 {
		log.Printf("mqtt: %d events were dropped while disconnected", o.dropped)
	}
	o.head, o.count, o.dropped = 0, 0, 0
	o.latest, o.hasLatest = bufferedMsg{}, false
	return result
}

func (o *outbox) len() int {
	n := o.count
	if o.hasLatest {
		n++
	}
	return n
}
