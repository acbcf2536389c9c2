package telemetry

import (
	"math/rand"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
)

// Reading ranges, inclusive after rounding to two decimals.
const (
	MinTemperature = 20.0
	MaxTemperature = 35.0
	MinHumidity    = 60.0
	MaxHumidity    = 80.0
)

// Sample is one synthetic reading. Values are decimal strings with
// exactly two fractional digits.
type Sample struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
}

// Generator draws samples from a random source. It is safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator reading from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeededGenerator returns a Generator whose sequence is fixed by seed.
func NewSeededGenerator(seed int64) *Generator {
	return NewGenerator(rand.NewSource(seed))
}

// Next draws temperature then humidity, each uniformly over its range.
func (g *Generator) Next() Sample {
	g.mu.Lock()
	t := g.rng.Float64()
	h := g.rng.Float64()
	g.mu.Unlock()

	return Sample{
		Temperature: format(MinTemperature + t*(MaxTemperature-MinTemperature)),
		Humidity:    format(MinHumidity + h*(MaxHumidity-MinHumidity)),
	}
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Encode serializes s as compact JSON: {"temperature":"..","humidity":".."}.
func Encode(s Sample) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSerialize, err)
	}
	return data, nil
}
