package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sonar-sensor/internal/config"
	"github.com/sweeney/sonar-sensor/internal/gpio"
	"github.com/sweeney/sonar-sensor/internal/logic"
	"github.com/sweeney/sonar-sensor/internal/mqtt"
	"github.com/sweeney/sonar-sensor/internal/ranging"
	"github.com/sweeney/sonar-sensor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		assert.Equal(t, canonical, got, "env var constant")
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}, *info)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	assert.Nil(t, readNetworkInfo(), "nil when NETWORK_STATUS is unset")
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, status.NetworkInfo{Status: "connected"}, *info)
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}

func TestOpenRigSimulated(t *testing.T) {
	cfg := config.Default()
	cfg.Simulate.Enabled = true
	cfg.Simulate.LeftCM = 51
	cfg.Simulate.RightCM = 0

	rig, err := openRig(cfg)
	require.NoError(t, err)
	defer rig.Close()

	sim, ok := rig.(*gpio.SimRig)
	require.True(t, ok, "expected a simulated rig")
	assert.Equal(t, 300, sim.LeftSensor.Distance())
	assert.Equal(t, 0, sim.RightSensor.Distance())
}

func TestRunPrintStateSimulated(t *testing.T) {
	cfg := config.Default()
	cfg.Simulate.Enabled = true

	assert.NoError(t, run(cfg, true))
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.Port = "/dev/ttyUSB0"

	sc := statusConfig(cfg)
	assert.Equal(t, ranging.DefaultParams(), sc.Params)
	assert.Equal(t, ranging.DefaultConverter(), sc.Converter)
	assert.Equal(t, int64(900000), sc.HeartbeatMs)
	assert.Equal(t, int64(1000), sc.PublishIntervalMs)
	assert.Equal(t, "/dev/ttyUSB0", sc.SerialPort)
}

// --- serve / runLoop tests ---

const testCadence = 400

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from the loop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type recorder struct {
	readings []ranging.Reading
	err      error
}

func (r *recorder) Broadcast(reading ranging.Reading) {
	r.readings = append(r.readings, reading)
}

func (r *recorder) Write(reading ranging.Reading) error {
	r.readings = append(r.readings, reading)
	return r.err
}

type harness struct {
	rig     *gpio.SimRig
	ranger  *ranging.Ranger
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	sink    *sink
}

func newHarness(t *testing.T, left, right int, publishInterval, heartbeat time.Duration) *harness {
	t.Helper()
	rig := gpio.NewSimRig(left, right)
	ranger, err := ranging.New(ranging.DefaultParams(), rig.Left(), rig.Right())
	require.NoError(t, err)

	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(t0, status.Config{
		Params:    ranging.DefaultParams(),
		Converter: ranging.DefaultConverter(),
	})
	return &harness{
		rig:     rig,
		ranger:  ranger,
		pub:     pub,
		tracker: tracker,
		sink: &sink{
			pacer:      logic.NewPacer(publishInterval, t0),
			publisher:  pub,
			mqttStatus: pub,
			tracker:    tracker,
			heartbeat:  heartbeat,
		},
	}
}

// serve drives serve() for nTicks ticks, then sends signal.
func (h *harness) serve(t *testing.T, clock func() time.Time, nTicks int, signal os.Signal) {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(h.ranger, h.sink, testCadence, &quanta{}, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	require.NoError(t, <-errCh)
}

func (h *harness) systemEvents() []string {
	var names []string
	for _, e := range h.pub.SystemEvents {
		names = append(names, e.Event)
	}
	return names
}

func TestServeNoCyclesBeforeCadence(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)

	h.serve(t, fakeClock(t0, time.Second), testCadence-1, syscall.SIGTERM)

	assert.Empty(t, h.pub.Readings)
	assert.Equal(t, []string{"SHUTDOWN"}, h.systemEvents())

	shutdown := h.pub.SystemEvents[0]
	assert.Equal(t, "SIGTERM", shutdown.Reason)
	assert.True(t, shutdown.Retained)
	assert.Contains(t, string(h.pub.SystemPayloads[0]), `"event":"SHUTDOWN","reason":"SIGTERM"`)
	assert.Contains(t, string(h.pub.SystemPayloads[0]), `"ready":false`)
}

func TestServePublishesFusedDistance(t *testing.T) {
	h := newHarness(t, 300, 120, 0, 0)
	clock := fakeClock(t0, 50*time.Millisecond)

	// Six cadence calls: assert, release, assert, release, assert, release.
	h.serve(t, clock, 6*testCadence, syscall.SIGINT)

	require.Len(t, h.pub.Readings, 3)

	// The first cycle has no echo yet; the next ones see 300 and 120 ticks,
	// which are too far apart to be one object, so 120 is smoothed in.
	var distances []int
	for _, r := range h.pub.Readings {
		distances = append(distances, r.Distance)
	}
	assert.Equal(t, []int{4120, 920, 280}, distances)

	last := h.pub.Readings[2]
	assert.Equal(t, uint64(3), last.Cycle)
	assert.Equal(t, t0.Add(100*time.Millisecond), last.Time)
	assert.Equal(t, ranging.SensorReading{Side: ranging.SideLeft, State: ranging.EchoOK, Distance: 300}, last.Left)
	assert.Equal(t, ranging.SensorReading{Side: ranging.SideRight, State: ranging.EchoOK, Distance: 120}, last.Right)

	snap := h.tracker.Snapshot()
	assert.Equal(t, last, snap.Reading)
	assert.Equal(t, uint64(3), snap.Counts.Cycles)
	assert.Equal(t, 3, snap.Counts.Left.OK)

	assert.Equal(t, []string{"SHUTDOWN"}, h.systemEvents())
	assert.Equal(t, "SIGINT", h.pub.SystemEvents[0].Reason)
}

func TestServeRateLimitsPublishing(t *testing.T) {
	h := newHarness(t, 300, 310, time.Second, 0)

	// Five cycles 100ms apart with no state change: only the first goes out.
	h.serve(t, fakeClock(t0, 100*time.Millisecond), 10*testCadence, syscall.SIGTERM)

	assert.Len(t, h.pub.Readings, 1)
	assert.Equal(t, uint64(5), h.tracker.Snapshot().Counts.Cycles)

	counts := h.sink.pacer.Counts()
	assert.Equal(t, logic.PublishCounts{Published: 1, Suppressed: 4}, counts)
}

func TestServeHeartbeat(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 15*time.Minute)

	// Cycles at t0, +5m, +10m, +15m: the fourth one is due a heartbeat.
	h.serve(t, fakeClock(t0, 5*time.Minute), 8*testCadence, syscall.SIGTERM)

	assert.Equal(t, []string{"HEARTBEAT", "SHUTDOWN"}, h.systemEvents())

	hb := h.pub.SystemEvents[0]
	assert.Equal(t, t0.Add(15*time.Minute), hb.Timestamp)
	assert.False(t, hb.Retained)
	assert.Contains(t, string(hb.RawPayload), `"event":"HEARTBEAT"`)
	assert.Contains(t, string(hb.RawPayload), `"cycles":4`)
}

func TestServeHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNet")
	h := newHarness(t, 300, 300, 0, time.Minute)

	h.serve(t, fakeClock(t0, time.Minute), 4*testCadence, syscall.SIGTERM)

	require.NotEmpty(t, h.pub.SystemEvents)
	assert.Equal(t, "HEARTBEAT", h.pub.SystemEvents[0].Event)
	assert.Contains(t, string(h.pub.SystemEvents[0].RawPayload), `"ssid":"MyNet"`)
}

func TestServePublishErrorContinues(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)
	h.pub.PublishError = errors.New("broker down")

	h.serve(t, fakeClock(t0, time.Second), 6*testCadence, syscall.SIGTERM)

	assert.Empty(t, h.pub.Readings)
	assert.Equal(t, uint64(3), h.tracker.Snapshot().Counts.Cycles)
	assert.Equal(t, []string{"SHUTDOWN"}, h.systemEvents())
}

func TestServeShutdownPublishErrorIsNotFatal(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)
	h.pub.PublishSystemError = errors.New("broker down")

	h.serve(t, fakeClock(t0, time.Second), testCadence, syscall.SIGTERM)

	assert.Empty(t, h.pub.SystemEvents)
}

func TestServeFansOutToLiveAndSerial(t *testing.T) {
	h := newHarness(t, 300, 300, time.Hour, 0)
	live := &recorder{}
	serial := &recorder{err: errors.New("unplugged")}
	h.sink.live = live
	h.sink.serial = serial

	h.serve(t, fakeClock(t0, time.Second), 6*testCadence, syscall.SIGTERM)

	// Every cycle reaches the live page and the serial line, whatever the
	// MQTT rate limit and serial errors.
	assert.Len(t, live.readings, 3)
	assert.Len(t, serial.readings, 3)
	assert.Len(t, h.pub.Readings, 1)
	assert.True(t, h.sink.serialFailing)
}

func TestServeMQTTStatusTracked(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)
	h.pub.Connected = true

	h.serve(t, fakeClock(t0, time.Second), 2*testCadence, syscall.SIGTERM)

	assert.True(t, h.tracker.Snapshot().MQTTConnected)
	assert.True(t, strings.Contains(string(h.pub.SystemPayloads[0]), `"connected":true`))
}

func TestRunLoopDropsWhenSinkBusy(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)
	out := make(chan cycle) // nobody reads
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	done := make(chan os.Signal, 1)
	go func() {
		done <- runLoop(h.ranger, out, testCadence, &quanta{}, fakeClock(t0, time.Second), tick, sig)
	}()

	for i := 0; i < 6*testCadence; i++ {
		tick <- time.Time{}
	}
	sig <- syscall.SIGTERM

	assert.Equal(t, syscall.SIGTERM, <-done)
	assert.Equal(t, uint64(3), h.ranger.Counts().Cycles, "ranging keeps going while readings are dropped")
}

func TestServeReportsGPIOErrors(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)
	h.sink.gpio = &gpio.FakeRig{ErrorCount: 3}

	h.serve(t, fakeClock(t0, time.Second), 2*testCadence, syscall.SIGTERM)

	assert.Equal(t, uint64(3), h.tracker.Snapshot().GPIOErrors)
	assert.Equal(t, uint64(3), h.sink.gpioErrors)
	assert.Contains(t, string(h.pub.SystemPayloads[0]), `"gpio_errors":3`)
}

func TestServeWithoutGPIOCounter(t *testing.T) {
	h := newHarness(t, 300, 300, 0, 0)

	h.serve(t, fakeClock(t0, time.Second), 2*testCadence, syscall.SIGTERM)

	assert.Zero(t, h.tracker.Snapshot().GPIOErrors)
	assert.Contains(t, string(h.pub.SystemPayloads[0]), `"gpio_errors":0`)
}
