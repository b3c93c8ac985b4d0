package main

import (
	"log"
	"time"
)

// maxBacklog bounds how much elapsed time one delivery may replay. Quanta
// beyond it, after a suspend or a long stall, are skipped.
const maxBacklog = time.Second

// quanta turns ticker deliveries into the tick periods that elapsed. The
// runtime cannot wake a goroutine every few microseconds, so one delivery
// usually stands for many quanta, and each of them is still sampled at its
// own instant. A zero period counts one quantum per delivery.
type quanta struct {
	period time.Duration
	// holdback keeps replay this far behind the delivery, so edge events
	// still in flight are recorded before their quantum is sampled.
	holdback time.Duration
	// seek, if set, moves the rig to a quantum's instant before it is sampled.
	seek func(time.Time)

	start   time.Time
	started bool
	done    int64 // quanta sampled so far
	skipped int64
}

// advance returns the half-open range [from, to) of quantum indices due at t.
func (q *quanta) advance(t time.Time) (from, to int64) {
	if q.period <= 0 {
		q.done++
		return q.done - 1, q.done
	}
	if !q.started {
		q.start = t.Add(-q.holdback)
		q.started = true
		q.done = 1
		return 0, 1
	}

	due := int64(t.Add(-q.holdback).Sub(q.start)/q.period) + 1
	if due <= q.done {
		return q.done, q.done
	}
	if limit := int64(maxBacklog / q.period); due-q.done > limit {
		skip := due - q.done - limit
		if q.skipped == 0 {
			log.Printf("sampler stalled, skipping %d ticks", skip)
		}
		q.skipped += skip
		q.done += skip
	}
	from, q.done = q.done, due
	return from, due
}

// at moves the rig to quantum k.
func (q *quanta) at(k int64) {
	if q.seek != nil && q.period > 0 {
		q.seek(q.start.Add(time.Duration(k) * q.period))
	}
}
