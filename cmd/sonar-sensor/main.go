// Command sonar-sensor drives a dual ultrasonic ranging rig and publishes
// fused distances to MQTT, a serial port and a live status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/sonar-sensor/internal/config"
	"github.com/sweeney/sonar-sensor/internal/gpio"
	"github.com/sweeney/sonar-sensor/internal/logic"
	"github.com/sweeney/sonar-sensor/internal/mqtt"
	"github.com/sweeney/sonar-sensor/internal/ranging"
	"github.com/sweeney/sonar-sensor/internal/serialout"
	"github.com/sweeney/sonar-sensor/internal/status"
	"github.com/sweeney/sonar-sensor/internal/web"
)

func main() {
	printState := flag.Bool("print-state", false, "Print current echo levels and exit")
	listSerial := flag.Bool("list-serial", false, "List serial ports and exit")

	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if *listSerial {
		if err := printPorts(); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func printPorts() error {
	ports, err := serialout.Ports()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

// openRig returns the simulated rig or the GPIO one.
func openRig(cfg config.Config) (gpio.Rig, error) {
	if cfg.Simulate.Enabled {
		conv := cfg.Converter()
		return gpio.NewSimRig(
			conv.TicksFromCentimeters(cfg.Simulate.LeftCM),
			conv.TicksFromCentimeters(cfg.Simulate.RightCM),
		), nil
	}
	rig, err := gpio.NewRealRig(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	return rig, nil
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		TickPeriod:        cfg.Ranging.TickPeriod,
		CadenceTicks:      cfg.Ranging.CadenceTicks,
		Params:            cfg.Params(),
		Converter:         cfg.Converter(),
		HeartbeatMs:       cfg.Heartbeat.Milliseconds(),
		PublishIntervalMs: cfg.MQTT.PublishInterval.Milliseconds(),
		Broker:            cfg.MQTT.Broker,
		HTTPPort:          cfg.HTTPAddr,
		SerialPort:        cfg.Serial.Port,
		Simulated:         cfg.Simulate.Enabled,
	}
}

func run(cfg config.Config, printState bool) error {
	rig, err := openRig(cfg)
	if err != nil {
		return err
	}
	defer rig.Close()

	// Print state mode
	if printState {
		left, right := gpio.ReadLevels(rig)
		fmt.Printf("LEFT: %s, RIGHT: %s\n", levelString(left), levelString(right))
		return nil
	}

	ranger, err := ranging.New(cfg.Params(), rig.Left(), rig.Right())
	if err != nil {
		return fmt.Errorf("init ranging: %w", err)
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:    cfg.MQTT.Broker,
		ClientID:  cfg.MQTT.ClientID,
		Converter: cfg.Converter(),
	})
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	s := &sink{
		pacer:      logic.NewPacer(cfg.MQTT.PublishInterval, snap.StartTime),
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
	}

	var g errgroup.Group

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		s.live = srv
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
			return nil
		})
		defer func() {
			srv.Shutdown(context.Background())
			g.Wait()
		}()
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	if cfg.Serial.Port != "" {
		w, err := serialout.Open(cfg.Serial.Port, cfg.Serial.Baud, cfg.Converter())
		if err != nil {
			return err
		}
		defer w.Close()
		s.serial = w
		log.Printf("writing readings to %s at %d baud", cfg.Serial.Port, cfg.Serial.Baud)
	}

	lockMemory()
	// Keep the sampler on one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log.Printf("started: tick=%v cadence=%d max=%d separation=%d broker=%s heartbeat=%v simulate=%v",
		cfg.Ranging.TickPeriod, cfg.Ranging.CadenceTicks, cfg.Ranging.MaxTicks, cfg.Params().SeparationTicks,
		cfg.MQTT.Broker, cfg.Heartbeat, cfg.Simulate.Enabled)

	q := &quanta{period: cfg.Ranging.TickPeriod}
	if sk, ok := rig.(gpio.Seeker); ok {
		q.seek = sk.Seek
		q.holdback = edgeHoldback
	}
	if ec, ok := rig.(gpio.ErrorCounter); ok {
		s.gpio = ec
	}

	ticker := time.NewTicker(cfg.Ranging.TickPeriod)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return serve(ranger, s, cfg.Ranging.CadenceTicks, q, time.Now, ticker.C, sigCh)
}

// serve runs the sampling loop on the calling goroutine and the sink on
// another until a signal arrives, then publishes the SHUTDOWN event.
func serve(ranger *ranging.Ranger, s *sink, cadenceTicks int, q *quanta, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	cycles := make(chan cycle, cycleBuffer)

	var g errgroup.Group
	g.Go(func() error {
		s.run(cycles)
		return nil
	})

	received := runLoop(ranger, cycles, cadenceTicks, q, now, tick, sig)
	close(cycles)
	if err := g.Wait(); err != nil {
		return err
	}

	s.shutdown(now(), signalName(received))
	return nil
}

// edgeHoldback is how far sampling trails the ticker on a rig read from
// edge events; it covers the delivery latency of those events.
const edgeHoldback = time.Millisecond

// cycleBuffer bounds the readings waiting for the sink. The sampling loop
// never blocks on it.
const cycleBuffer = 64

// cycle is one completed ranging cycle handed to the sink.
type cycle struct {
	reading ranging.Reading
	counts  ranging.Counts
}

// runLoop samples every elapsed tick quantum and runs the trigger cadence
// every cadenceTicks quanta. It returns the signal that stopped it.
func runLoop(ranger *ranging.Ranger, out chan<- cycle, cadenceTicks int, q *quanta, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) os.Signal {
	n := 0
	dropped := 0

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if dropped > 0 {
				log.Printf("dropped %d readings while the sink was busy", dropped)
			}
			if q.skipped > 0 {
				log.Printf("skipped %d ticks while stalled", q.skipped)
			}
			return s

		case t := <-tick:
			from, to := q.advance(t)
			for k := from; k < to; k++ {
				q.at(k)
				ranger.OnTick()

				n++
				if n < cadenceTicks {
					continue
				}
				n = 0

				reading, ok := ranger.OnTriggerCadence()
				if !ok {
					continue
				}
				reading.Time = now()

				select {
				case out <- cycle{reading: reading, counts: ranger.Counts()}:
				default:
					if dropped == 0 {
						log.Printf("sink is falling behind, dropping readings")
					}
					dropped++
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
