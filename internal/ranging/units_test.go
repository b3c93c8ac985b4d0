package ranging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConverterDefaults(t *testing.T) {
	c := DefaultConverter()

	assert.Equal(t, int64(1700), c.Micrometers(1))
	assert.Equal(t, int64(170), c.Millimeters(100))
	assert.Equal(t, int64(17), c.Centimeters(100))
	assert.Equal(t, int64(0), c.Centimeters(5))

	// The default range is about seven metres.
	assert.Equal(t, int64(700), c.Centimeters(DefaultMaxTicks))
}

func TestConverterSeparation(t *testing.T) {
	c := DefaultConverter()
	assert.Equal(t, DefaultSeparationTicks, c.TicksFromCentimeters(3.4))
	assert.Equal(t, 0, c.TicksFromCentimeters(0))
}

func TestConverterCustomPeriod(t *testing.T) {
	c := Converter{TickPeriod: 58 * time.Microsecond, SpeedOfSound: 344}
	// 344 m/s * 58 µs / 2 = 9976 µm per tick.
	assert.Equal(t, int64(9976), c.Micrometers(1))
	assert.Equal(t, int64(99), c.Centimeters(100))
}

func TestConverterZeroPeriod(t *testing.T) {
	c := Converter{}
	assert.Equal(t, 0, c.TicksFromCentimeters(10))
	assert.Equal(t, int64(0), c.Micrometers(100))
}

func TestConverterSubMicrosecondPeriod(t *testing.T) {
	c := Converter{TickPeriod: 1500 * time.Nanosecond, SpeedOfSound: 340}
	// 340 m/s * 1.5 µs / 2 = 255 µm per tick.
	assert.Equal(t, int64(255), c.Micrometers(1))
	assert.Equal(t, int64(2550), c.Micrometers(10))
	assert.Equal(t, int64(25), c.Millimeters(100))
	assert.Equal(t, 39, c.TicksFromCentimeters(1))
}
