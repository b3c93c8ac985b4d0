// Package config holds the daemon settings. Values come from defaults, an
// optional YAML file and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/sonar-sensor/internal/gpio"
	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// RangingConfig configures the sampling loop and the ranging core.
type RangingConfig struct {
	TickPeriod      time.Duration `yaml:"tick_period"`
	CadenceTicks    int           `yaml:"cadence_ticks"`
	MaxTicks        int           `yaml:"max_ticks"`
	SeparationCM    float64       `yaml:"separation_cm"`
	DisjointMargin  float64       `yaml:"disjoint_margin"`
	SmoothingFactor float64       `yaml:"smoothing_factor"`
	SpeedOfSound    int           `yaml:"speed_of_sound"` // m/s
}

// GPIOConfig selects the chip and BCM pins.
type GPIOConfig struct {
	Chip         string `yaml:"chip"`
	LeftEcho     int    `yaml:"left_echo"`
	LeftTrigger  int    `yaml:"left_trigger"`
	RightEcho    int    `yaml:"right_echo"`
	RightTrigger int    `yaml:"right_trigger"`
}

// SimulateConfig replaces the GPIO rig with simulated sensors.
type SimulateConfig struct {
	Enabled bool    `yaml:"enabled"`
	LeftCM  float64 `yaml:"left_cm"`
	RightCM float64 `yaml:"right_cm"`
}

type MQTTConfig struct {
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	PublishInterval time.Duration `yaml:"publish_interval"` // 0 publishes every cycle
}

type SerialConfig struct {
	Port string `yaml:"port"` // empty disables
	Baud int    `yaml:"baud"`
}

// Config is the top-level structure of the YAML file.
type Config struct {
	Ranging   RangingConfig  `yaml:"ranging"`
	GPIO      GPIOConfig     `yaml:"gpio"`
	Simulate  SimulateConfig `yaml:"simulate"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	Serial    SerialConfig   `yaml:"serial"`
	HTTPAddr  string         `yaml:"http_addr"` // empty disables
	Heartbeat time.Duration  `yaml:"heartbeat"` // 0 disables
}

// Default returns the built-in configuration.
func Default() Config {
	p := ranging.DefaultParams()
	pins := gpio.DefaultPins()
	return Config{
		Ranging: RangingConfig{
			TickPeriod:      ranging.DefaultTickPeriod,
			CadenceTicks:    5000,
			MaxTicks:        p.MaxTicks,
			SeparationCM:    3.4,
			DisjointMargin:  p.DisjointMargin,
			SmoothingFactor: p.SmoothingFactor,
			SpeedOfSound:    ranging.DefaultSpeedOfSound,
		},
		GPIO: GPIOConfig{
			Chip:         gpio.DefaultChip,
			LeftEcho:     pins.LeftEcho,
			LeftTrigger:  pins.LeftTrigger,
			RightEcho:    pins.RightEcho,
			RightTrigger: pins.RightTrigger,
		},
		Simulate: SimulateConfig{
			LeftCM:  120,
			RightCM: 125,
		},
		MQTT: MQTTConfig{
			Broker:          "tcp://192.168.1.200:1883",
			ClientID:        "sonar-sensor",
			PublishInterval: time.Second,
		},
		Serial: SerialConfig{
			Baud: 115200,
		},
		HTTPAddr:  ":80",
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Converter returns the tick/length converter for these settings.
func (c Config) Converter() ranging.Converter {
	return ranging.Converter{TickPeriod: c.Ranging.TickPeriod, SpeedOfSound: c.Ranging.SpeedOfSound}
}

// Params returns the ranging parameters, with the sensor separation in ticks.
func (c Config) Params() ranging.Params {
	return ranging.Params{
		MaxTicks:        c.Ranging.MaxTicks,
		SeparationTicks: c.Converter().TicksFromCentimeters(c.Ranging.SeparationCM),
		DisjointMargin:  c.Ranging.DisjointMargin,
		SmoothingFactor: c.Ranging.SmoothingFactor,
	}
}

// Pins returns the configured pin assignment.
func (c Config) Pins() gpio.Pins {
	return gpio.Pins{
		LeftEcho:     c.GPIO.LeftEcho,
		LeftTrigger:  c.GPIO.LeftTrigger,
		RightEcho:    c.GPIO.RightEcho,
		RightTrigger: c.GPIO.RightTrigger,
	}
}

// CadencePeriod is the time between two trigger cadence calls.
func (c Config) CadencePeriod() time.Duration {
	return time.Duration(c.Ranging.CadenceTicks) * c.Ranging.TickPeriod
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	r := c.Ranging

	if r.TickPeriod < time.Microsecond {
		errs = append(errs, fmt.Errorf("tick period %v: must be at least 1µs", r.TickPeriod))
	}
	// An echo may last up to MaxTicks; a shorter cadence would cut it off.
	if r.CadenceTicks <= r.MaxTicks {
		errs = append(errs, fmt.Errorf("cadence ticks %d: must be greater than max ticks %d", r.CadenceTicks, r.MaxTicks))
	}
	if r.SpeedOfSound <= 0 {
		errs = append(errs, fmt.Errorf("speed of sound %d: must be positive", r.SpeedOfSound))
	}
	if r.SeparationCM < 0 {
		errs = append(errs, fmt.Errorf("separation %vcm: must not be negative", r.SeparationCM))
	}
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}

	if !c.Simulate.Enabled {
		seen := map[int]string{}
		for _, p := range []struct {
			name string
			pin  int
		}{
			{"left echo", c.GPIO.LeftEcho},
			{"left trigger", c.GPIO.LeftTrigger},
			{"right echo", c.GPIO.RightEcho},
			{"right trigger", c.GPIO.RightTrigger},
		} {
			if p.pin < 0 {
				errs = append(errs, fmt.Errorf("%s pin %d: must not be negative", p.name, p.pin))
			}
			if other, ok := seen[p.pin]; ok {
				errs = append(errs, fmt.Errorf("%s pin %d: already used by %s", p.name, p.pin, other))
			}
			seen[p.pin] = p.name
		}
	} else if c.Simulate.LeftCM < 0 || c.Simulate.RightCM < 0 {
		errs = append(errs, errors.New("simulated distances must not be negative"))
	}

	if c.MQTT.PublishInterval < 0 {
		errs = append(errs, fmt.Errorf("publish interval %v: must not be negative", c.MQTT.PublishInterval))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat %v: must not be negative", c.Heartbeat))
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial baud %d: must be positive", c.Serial.Baud))
	}

	return errors.Join(errs...)
}

// bindFlags registers one flag per setting, writing into c.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.Ranging.TickPeriod, "tick", c.Ranging.TickPeriod, "Sampling tick period")
	fs.IntVar(&c.Ranging.CadenceTicks, "cadence", c.Ranging.CadenceTicks, "Ticks between trigger cadence calls")
	fs.IntVar(&c.Ranging.MaxTicks, "max-ticks", c.Ranging.MaxTicks, "Maximum distance in ticks")
	fs.Float64Var(&c.Ranging.SeparationCM, "separation-cm", c.Ranging.SeparationCM, "Distance between the two sensors in cm")
	fs.Float64Var(&c.Ranging.DisjointMargin, "margin", c.Ranging.DisjointMargin, "Fraction of the separation above which readings are disjoint")
	fs.Float64Var(&c.Ranging.SmoothingFactor, "smoothing", c.Ranging.SmoothingFactor, "Weight of the new reading in the distance filter (1 disables smoothing)")
	fs.IntVar(&c.Ranging.SpeedOfSound, "speed-of-sound", c.Ranging.SpeedOfSound, "Speed of sound in m/s")

	fs.StringVar(&c.GPIO.Chip, "gpio-chip", c.GPIO.Chip, "GPIO chip name")
	fs.IntVar(&c.GPIO.LeftEcho, "pin-left-echo", c.GPIO.LeftEcho, "BCM pin number for the left echo")
	fs.IntVar(&c.GPIO.LeftTrigger, "pin-left-trigger", c.GPIO.LeftTrigger, "BCM pin number for the left trigger")
	fs.IntVar(&c.GPIO.RightEcho, "pin-right-echo", c.GPIO.RightEcho, "BCM pin number for the right echo")
	fs.IntVar(&c.GPIO.RightTrigger, "pin-right-trigger", c.GPIO.RightTrigger, "BCM pin number for the right trigger")

	fs.BoolVar(&c.Simulate.Enabled, "simulate", c.Simulate.Enabled, "Use simulated sensors instead of GPIO")
	fs.Float64Var(&c.Simulate.LeftCM, "sim-left-cm", c.Simulate.LeftCM, "Simulated left distance in cm (0 = no echo)")
	fs.Float64Var(&c.Simulate.RightCM, "sim-right-cm", c.Simulate.RightCM, "Simulated right distance in cm (0 = no echo)")

	fs.StringVar(&c.MQTT.Broker, "broker", c.MQTT.Broker, "MQTT broker address")
	fs.StringVar(&c.MQTT.ClientID, "client-id", c.MQTT.ClientID, "MQTT client id")
	fs.DurationVar(&c.MQTT.PublishInterval, "publish-interval", c.MQTT.PublishInterval, "Minimum time between distance messages (0 for every cycle)")

	fs.StringVar(&c.Serial.Port, "serial", c.Serial.Port, "Serial port for distance lines (empty to disable)")
	fs.IntVar(&c.Serial.Baud, "baud", c.Serial.Baud, "Serial baud rate")

	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP status address (empty to disable)")
	fs.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat interval (0 to disable)")
}

// Parse registers the settings flags and a -config flag on fs, parses args
// and returns the resulting configuration. Flags given on the command line
// override the file. The caller may register its own flags on fs beforehand.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()
	path := fs.String("config", "", "YAML config file")
	cfg.bindFlags(fs)

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if *path == "" {
		return cfg, nil
	}

	file, err := Load(*path)
	if err != nil {
		return cfg, err
	}

	// Replay the flags that were set onto the file values.
	over := flag.NewFlagSet("override", flag.ContinueOnError)
	file.bindFlags(over)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if over.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		if err := over.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("flag -%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return cfg, setErr
	}
	return file, nil
}
