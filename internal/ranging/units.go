package ranging

import "time"

// Converter turns tick counts into lengths. An echo lasts for the round trip,
// so one tick covers speed*period/2.
type Converter struct {
	TickPeriod   time.Duration
	SpeedOfSound int // metres per second
}

// DefaultConverter matches DefaultTickPeriod and DefaultSpeedOfSound.
func DefaultConverter() Converter {
	return Converter{TickPeriod: DefaultTickPeriod, SpeedOfSound: DefaultSpeedOfSound}
}

// Micrometers converts ticks to micrometres. m/s times ns gives nm, and the
// round trip halves it.
func (c Converter) Micrometers(ticks int) int64 {
	return int64(ticks) * int64(c.SpeedOfSound) * c.TickPeriod.Nanoseconds() / 2000
}

// Millimeters converts ticks to millimetres.
func (c Converter) Millimeters(ticks int) int64 {
	return c.Micrometers(ticks) / 1000
}

// Centimeters converts ticks to centimetres.
func (c Converter) Centimeters(ticks int) int64 {
	return c.Micrometers(ticks) / 10000
}

// TicksFromCentimeters converts a one-way length into ticks, truncating.
func (c Converter) TicksFromCentimeters(cm float64) int {
	perTick := float64(c.SpeedOfSound) * float64(c.TickPeriod.Nanoseconds()) / 2000 // µm
	if perTick <= 0 {
		return 0
	}
	return int(cm * 10000 / perTick)
}
