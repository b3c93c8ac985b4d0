package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Distance      DistanceJSON `json:"distance"`
	Left          SensorJSON   `json:"left"`
	Right         SensorJSON   `json:"right"`
	Cycles        uint64       `json:"cycles"`
	Ready         bool         `json:"ready"`
	LastReading   string       `json:"last_reading,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	GPIOErrors    uint64       `json:"gpio_errors"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// DistanceJSON is a distance in ticks and metric units.
type DistanceJSON struct {
	Ticks int   `json:"ticks"`
	MM    int64 `json:"mm"`
	CM    int64 `json:"cm"`
}

// SensorJSON reports one sensor's classification, last distance and counts.
type SensorJSON struct {
	State    string       `json:"state"`
	Distance DistanceJSON `json:"distance"`
	Counts   CountsJSON   `json:"echo_counts"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of per-state cycle counts.
type CountsJSON struct {
	OK     int `json:"ok"`
	NextOK int `json:"next_ok"`
	Lost   int `json:"lost"`
	Long   int `json:"long"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickUs            int64   `json:"tick_us"`
	CadenceTicks      int     `json:"cadence_ticks"`
	MaxTicks          int     `json:"max_ticks"`
	SeparationTicks   int     `json:"separation_ticks"`
	DisjointMargin    float64 `json:"disjoint_margin"`
	SmoothingFactor   float64 `json:"smoothing_factor"`
	HeartbeatMs       int64   `json:"heartbeat_ms"`
	PublishIntervalMs int64   `json:"publish_interval_ms"`
	Broker            string  `json:"broker"`
	HTTPPort          string  `json:"http_port"`
	SerialPort        string  `json:"serial_port,omitempty"`
	Simulated         bool    `json:"simulated,omitempty"`
}

func distanceJSON(ticks int, conv ranging.Converter) DistanceJSON {
	return DistanceJSON{Ticks: ticks, MM: conv.Millimeters(ticks), CM: conv.Centimeters(ticks)}
}

func sensorJSON(s ranging.SensorReading, c ranging.EchoCounts, conv ranging.Converter) SensorJSON {
	return SensorJSON{
		State:    s.State.String(),
		Distance: distanceJSON(s.Distance, conv),
		Counts:   CountsJSON{OK: c.OK, NextOK: c.NextOK, Lost: c.Lost, Long: c.Long},
	}
}

func buildInner(snap Snapshot) StatusInner {
	cfg := snap.Config
	conv := cfg.Converter

	inner := StatusInner{
		Distance:      distanceJSON(snap.Reading.Distance, conv),
		Left:          sensorJSON(snap.Reading.Left, snap.Counts.Left, conv),
		Right:         sensorJSON(snap.Reading.Right, snap.Counts.Right, conv),
		Cycles:        snap.Counts.Cycles,
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		GPIOErrors:    snap.GPIOErrors,
		Config: ConfigJSON{
			TickUs:            cfg.TickPeriod.Microseconds(),
			CadenceTicks:      cfg.CadenceTicks,
			MaxTicks:          cfg.Params.MaxTicks,
			SeparationTicks:   cfg.Params.SeparationTicks,
			DisjointMargin:    cfg.Params.DisjointMargin,
			SmoothingFactor:   cfg.Params.SmoothingFactor,
			HeartbeatMs:       cfg.HeartbeatMs,
			PublishIntervalMs: cfg.PublishIntervalMs,
			Broker:            cfg.Broker,
			HTTPPort:          cfg.HTTPPort,
			SerialPort:        cfg.SerialPort,
			Simulated:         cfg.Simulated,
		},
	}
	if !snap.Reading.Time.IsZero() {
		inner.LastReading = snap.Reading.Time.UTC().Format(time.RFC3339Nano)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
