package simulator

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextReadingDistributions(t *testing.T) {
	s := New(3, WithRand(rand.New(rand.NewPCG(7, 11))))

	const n = 20000
	var sumT, sumP, sumH float64
	for i := 0; i < n; i++ {
		r := s.NextReading()
		require.Equal(t, int32(3), r.SensorID)
		sumT += float64(r.Temperature)
		sumP += float64(r.Pressure)
		sumH += float64(r.Humidity)
	}
	assert.InDelta(t, 13.5, sumT/n, 0.05)
	assert.InDelta(t, 1017, sumP/n, 0.1)
	assert.InDelta(t, 75, sumH/n, 0.2)
}

func TestNextIntervalMean(t *testing.T) {
	s := New(1, WithRand(rand.New(rand.NewPCG(1, 1))), WithTimeUnit(time.Millisecond))

	const n = 20000
	var sum time.Duration
	for i := 0; i < n; i++ {
		d := s.NextInterval()
		require.GreaterOrEqual(t, d, time.Duration(0))
		sum += d
	}
	assert.InDelta(t, float64(4*time.Millisecond), float64(sum/n), float64(100*time.Microsecond))
}

func TestClampInterval(t *testing.T) {
	assert.Equal(t, time.Duration(0), ClampInterval(-0.3, time.Second))
	assert.Equal(t, time.Duration(0), ClampInterval(-4, time.Second))
	assert.Equal(t, time.Duration(0), ClampInterval(0, time.Second))
	assert.Equal(t, time.Duration(0), ClampInterval(math.NaN(), time.Second))
	assert.Equal(t, 2500*time.Millisecond, ClampInterval(2.5, time.Second))
	assert.Equal(t, 4*time.Millisecond, ClampInterval(4, time.Millisecond))
}

func TestNextReadingTimestampNeverDecreases(t *testing.T) {
	base := time.UnixMilli(10_000)
	times := []time.Time{base, base.Add(5 * time.Millisecond), base.Add(-time.Second), base.Add(10 * time.Millisecond)}
	i := 0
	clock := func() time.Time {
		now := times[i]
		i++
		return now
	}
	s := New(1, WithClock(clock))

	var got []uint64
	for range times {
		got = append(got, s.NextReading().Timestamp)
	}
	assert.Equal(t, []uint64{10_000, 10_005, 10_005, 10_010}, got)
}

func TestIndependentSeeds(t *testing.T) {
	a := New(1)
	b := New(1)
	same := 0
	for i := 0; i < 16; i++ {
		if a.NextReading().Temperature == b.NextReading().Temperature {
			same++
		}
	}
	assert.Less(t, same, 16)
}
