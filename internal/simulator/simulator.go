// Package simulator produces plausible sensor readings and publish intervals.
package simulator

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/ghalamif/aegis-sensor/internal/domain"
)

// Normal describes a normal distribution.
type Normal struct {
	Mean   float64
	StdDev float64
}

// Draw samples d using rng.
func (d Normal) Draw(rng *rand.Rand) float64 {
	return rng.NormFloat64()*d.StdDev + d.Mean
}

// Calibration of the legacy field simulator. Units are not part of the protocol.
var (
	Temperature = Normal{Mean: 13.5, StdDev: 1.09}
	Pressure    = Normal{Mean: 1017, StdDev: 2.0}
	Humidity    = Normal{Mean: 75, StdDev: 5}
	Interval    = Normal{Mean: 4, StdDev: 1}
)

// Clock returns the current wall time.
type Clock func() time.Time

// Simulator generates readings for one sensor. It is not safe for concurrent
// use; each publisher owns one.
type Simulator struct {
	sensorID int32
	rng      *rand.Rand
	clock    Clock
	unit     time.Duration
	lastTS   uint64
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(s *Simulator) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRand replaces the entropy-seeded generator, for reproducible runs.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithTimeUnit sets the length of one interval unit (default one second).
func WithTimeUnit(unit time.Duration) Option {
	return func(s *Simulator) {
		if unit > 0 {
			s.unit = unit
		}
	}
}

// New returns a simulator whose generator is seeded from the OS entropy source.
func New(sensorID int32, opts ...Option) *Simulator {
	s := &Simulator{
		sensorID: sensorID,
		clock:    time.Now,
		unit:     time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewChaCha8(entropySeed()))
	}
	return s
}

// SensorID returns the identity readings are stamped with.
func (s *Simulator) SensorID() int32 { return s.sensorID }

// NextReading draws a reading stamped with the current time. Timestamps never
// go backwards for a given simulator even if the wall clock does.
func (s *Simulator) NextReading() domain.Reading {
	ts := uint64(0)
	if ms := s.clock().UnixMilli(); ms > 0 {
		ts = uint64(ms)
	}
	if ts < s.lastTS {
		ts = s.lastTS
	}
	s.lastTS = ts

	return domain.Reading{
		SensorID:    s.sensorID,
		Temperature: float32(Temperature.Draw(s.rng)),
		Pressure:    float32(Pressure.Draw(s.rng)),
		Humidity:    float32(Humidity.Draw(s.rng)),
		Timestamp:   ts,
	}
}

// NextInterval draws the wait before the next publish. Negative draws become
// a zero-length wait.
func (s *Simulator) NextInterval() time.Duration {
	return ClampInterval(Interval.Draw(s.rng), s.unit)
}

// ClampInterval converts units of unit into a duration, mapping negative and
// NaN values to zero.
func ClampInterval(units float64, unit time.Duration) time.Duration {
	if !(units > 0) {
		return 0
	}
	return time.Duration(units * float64(unit))
}

func entropySeed() [32]byte {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		binary.LittleEndian.PutUint64(seed[:8], uint64(time.Now().UnixNano()))
	}
	return seed
}
