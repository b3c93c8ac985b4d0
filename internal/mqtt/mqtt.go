// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// Topic is the MQTT topic for distance readings.
const Topic = "sonar/ranging/distance"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sonar/ranging/system"

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a distance reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(reading ranging.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Ranging RangingPayload `json:"ranging"`
}

// RangingPayload contains one fused reading.
type RangingPayload struct {
	Timestamp     string        `json:"timestamp"`
	Cycle         uint64        `json:"cycle"`
	DistanceTicks int           `json:"distance_ticks"`
	DistanceMM    int64         `json:"distance_mm"`
	DistanceCM    int64         `json:"distance_cm"`
	Left          SensorPayload `json:"left"`
	Right         SensorPayload `json:"right"`
}

// SensorPayload represents a single sensor's state.
type SensorPayload struct {
	State         string `json:"state"`
	DistanceTicks int    `json:"distance_ticks"`
	DistanceMM    int64  `json:"distance_mm"`
}

func sensorPayload(s ranging.SensorReading, conv ranging.Converter) SensorPayload {
	return SensorPayload{
		State:         s.State.String(),
		DistanceTicks: s.Distance,
		DistanceMM:    conv.Millimeters(s.Distance),
	}
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(r ranging.Reading, conv ranging.Converter) ([]byte, error) {
	payload := Payload{
		Ranging: RangingPayload{
			Timestamp:     r.Time.UTC().Format(time.RFC3339Nano),
			Cycle:         r.Cycle,
			DistanceTicks: r.Distance,
			DistanceMM:    conv.Millimeters(r.Distance),
			DistanceCM:    conv.Centimeters(r.Distance),
			Left:          sensorPayload(r.Left, conv),
			Right:         sensorPayload(r.Right, conv),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
