package telemetry

import (
	"math/rand"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoDecimals = regexp.MustCompile(`^\d+\.\d{2}$`)

func TestSamplesWithinRange(t *testing.T) {
	g := NewSeededGenerator(1)
	for i := 0; i < 10000; i++ {
		s := g.Next()
		require.Regexp(t, twoDecimals, s.Temperature)
		require.Regexp(t, twoDecimals, s.Humidity)

		temp, err := strconv.ParseFloat(s.Temperature, 64)
		require.NoError(t, err)
		hum, err := strconv.ParseFloat(s.Humidity, 64)
		require.NoError(t, err)

		require.GreaterOrEqual(t, temp, MinTemperature)
		require.LessOrEqual(t, temp, MaxTemperature)
		require.GreaterOrEqual(t, hum, MinHumidity)
		require.LessOrEqual(t, hum, MaxHumidity)
	}
}

// fixedSource returns the same Int63 forever, pinning Float64 at a
// chosen point of the unit interval. 1<<63 - 1<<10 converts to a float
// just below 1<<63, so Float64 stays under 1.0.
type fixedSource int64

func (s fixedSource) Int63() int64 { return int64(s) }
func (fixedSource) Seed(int64)     {}

func TestRangeBounds(t *testing.T) {
	low := NewGenerator(fixedSource(0)).Next()
	assert.Equal(t, Sample{Temperature: "20.00", Humidity: "60.00"}, low)

	high := NewGenerator(fixedSource(1<<63 - 1<<10)).Next()
	assert.Equal(t, Sample{Temperature: "35.00", Humidity: "80.00"}, high)
}

func TestSeededSequenceIsReproducible(t *testing.T) {
	a := NewSeededGenerator(42)
	b := NewGenerator(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}

	c := NewSeededGenerator(43)
	same := true
	a = NewSeededGenerator(42)
	for i := 0; i < 10; i++ {
		if a.Next() != c.Next() {
			same = false
		}
	}
	assert.False(t, same)
}

func TestEncode(t *testing.T) {
	data, err := Encode(Sample{Temperature: "23.45", Humidity: "65.10"})
	require.NoError(t, err)
	assert.Equal(t, `{"temperature":"23.45","humidity":"65.10"}`, string(data))
}
