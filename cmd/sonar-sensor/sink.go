package main

import (
	"log"
	"time"

	"github.com/sweeney/sonar-sensor/internal/gpio"
	"github.com/sweeney/sonar-sensor/internal/logic"
	"github.com/sweeney/sonar-sensor/internal/mqtt"
	"github.com/sweeney/sonar-sensor/internal/ranging"
	"github.com/sweeney/sonar-sensor/internal/status"
)

// broadcaster receives every reading (the web server's websocket hub).
type broadcaster interface {
	Broadcast(r ranging.Reading)
}

// readingWriter receives every reading (the serial line writer).
type readingWriter interface {
	Write(r ranging.Reading) error
}

// sink consumes completed cycles away from the sampling loop. It owns the
// pacer; everything it calls may block.
type sink struct {
	pacer      *logic.Pacer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration

	live   broadcaster       // optional
	serial readingWriter     // optional
	gpio   gpio.ErrorCounter // optional

	serialFailing bool
	gpioErrors    uint64
}

// run handles cycles until the channel is closed.
func (s *sink) run(cycles <-chan cycle) {
	for c := range cycles {
		s.handle(c)
	}
}

func (s *sink) handle(c cycle) {
	r := c.reading

	// Update status tracker for HTTP consumers
	s.tracker.Update(r, c.counts)
	if s.mqttStatus != nil {
		s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
	}

	s.checkGPIO()

	if s.live != nil {
		s.live.Broadcast(r)
	}

	if s.serial != nil {
		err := s.serial.Write(r)
		switch {
		case err != nil && !s.serialFailing:
			log.Printf("serial error: %v", err)
			s.serialFailing = true
		case err == nil && s.serialFailing:
			log.Printf("serial recovered")
			s.serialFailing = false
		}
	}

	if d := s.pacer.Process(r); d.Publish {
		if err := s.publisher.Publish(r); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	// Check for heartbeat
	if hb := s.pacer.CheckHeartbeat(r.Time, s.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v cycles=%d distance=%d left=%s right=%s published=%d suppressed=%d gpio_errors=%d",
			hb.Uptime, c.counts.Cycles, r.Distance, r.Left.State, r.Right.State, hb.Counts.Published, hb.Counts.Suppressed, s.gpioErrors)

		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			s.tracker.SetNetwork(net)
		}
		snap := s.tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  hb.Timestamp,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		}
		if err := s.publisher.PublishSystem(event); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}
}

// checkGPIO copies the rig's error count to the tracker and logs when it grows.
func (s *sink) checkGPIO() {
	if s.gpio == nil {
		return
	}
	n := s.gpio.Errors()
	if n == s.gpioErrors {
		return
	}
	if s.gpioErrors == 0 {
		log.Printf("gpio errors: %d failed line reads or writes, readings may be stale", n)
	}
	s.gpioErrors = n
	s.tracker.SetGPIOErrors(n)
}

// shutdown publishes the SHUTDOWN event with a final status snapshot.
func (s *sink) shutdown(at time.Time, reason string) {
	s.checkGPIO()
	if s.pacer.Started() {
		pc := s.pacer.Counts()
		log.Printf("readings: published=%d suppressed=%d state_changes=%d gpio_errors=%d",
			pc.Published, pc.Suppressed, pc.StateChanges, s.gpioErrors)
	} else {
		log.Printf("no ranging cycle completed before shutdown")
	}

	if s.mqttStatus != nil {
		s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
	}
	snap := s.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  at,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := s.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}
