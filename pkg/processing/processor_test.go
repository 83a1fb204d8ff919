//nolint:funlen // ok for tests
package processing

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
)

func testConfig() *model.SessionConfig {
	cfg := model.DefaultSessionConfig()
	cfg.Name = "test session"
	cfg.RaceLaps = 30
	cfg.TankCapacity = 60
	return cfg
}

func TestNewProcessor_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SessionConfig)
	}{
		{"missing race laps", func(c *model.SessionConfig) { c.RaceLaps = 0 }},
		{"negative tank", func(c *model.SessionConfig) { c.TankCapacity = -1 }},
		{"missing pit time", func(c *model.SessionConfig) { c.AvgPitTime = 0 }},
		{"inverted temp window", func(c *model.SessionConfig) {
			c.OptimalTempMin = 95
			c.OptimalTempMax = 85
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := NewProcessor(cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		})
	}

	_, err := NewProcessor(nil)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestProcessor_RejectsOutOfOrder(t *testing.T) {
	p, err := NewProcessor(testConfig())
	require.NoError(t, err)

	require.NoError(t, p.ProcessSample(model.TelemetrySample{Timestamp: 2000, Lap: 1}))
	err = p.ProcessSample(model.TelemetrySample{Timestamp: 1000, Lap: 1})
	assert.True(t, errors.Is(err, history.ErrOutOfOrderSample))
	assert.Equal(t, 1, p.SampleCount())
}

// feedStint appends one sample per lap start with linearly decreasing
// fuel and steady temps.
func feedStint(t *testing.T, p *Processor, laps int, startFuel, perLap float64) {
	t.Helper()
	for lap := 1; lap <= laps; lap++ {
		require.NoError(t, p.ProcessSample(model.TelemetrySample{
			Timestamp: int64(lap) * 90_000,
			Lap:       lap,
			Speed:     180,
			FuelLevel: startFuel - float64(lap-1)*perLap,
			TireTemp:  [model.NumTires]float64{90, 91, 89, 92},
			LapTime:   90,
		}))
	}
}

func TestProcessor_SnapshotsAreIdempotent(t *testing.T) {
	p, err := NewProcessor(testConfig())
	require.NoError(t, err)
	feedStint(t, p, 8, 50, 2.4)

	first := p.FuelState()
	second := p.FuelState()
	assert.Empty(t, cmp.Diff(first, second))

	recFirst := p.Recommendation()
	recSecond := p.Recommendation()
	assert.Empty(t, cmp.Diff(recFirst, recSecond))
}

func TestProcessor_FuelState(t *testing.T) {
	p, err := NewProcessor(testConfig())
	require.NoError(t, err)
	feedStint(t, p, 8, 50, 2.4)

	got := p.FuelState()
	require.False(t, got.InsufficientData)
	assert.InDelta(t, 2.4, got.PerLapConsumption, 0.001)
	// 30 race laps, last sample on lap 8
	assert.InDelta(t, 22, got.LapsToGo, 0.001)
}

func TestProcessor_TireStintAge(t *testing.T) {
	p, err := NewProcessor(testConfig())
	require.NoError(t, err)
	feedStint(t, p, 10, 50, 2.4)

	// no refuel yet: stint runs from the oldest sample
	assert.Equal(t, 9, p.TireState().LapsOnTires)

	// refuel on lap 11 restarts the stint
	require.NoError(t, p.ProcessSample(model.TelemetrySample{
		Timestamp: 11 * 90_000,
		Lap:       11,
		FuelLevel: 55,
		TireTemp:  [model.NumTires]float64{90, 91, 89, 92},
	}))
	require.NoError(t, p.ProcessSample(model.TelemetrySample{
		Timestamp: 13 * 90_000,
		Lap:       13,
		FuelLevel: 50.2,
		TireTemp:  [model.NumTires]float64{90, 91, 89, 92},
	}))
	assert.Equal(t, 2, p.TireState().LapsOnTires)
}

func TestProcessor_Laps(t *testing.T) {
	p, err := NewProcessor(testConfig())
	require.NoError(t, err)
	feedStint(t, p, 4, 50, 2.4)

	laps := p.Laps()
	require.Len(t, laps, 3)
	assert.Equal(t, 1, laps[0].LapNumber)
	assert.InDelta(t, 2.4, laps[0].FuelUsed, 0.001)
	assert.InDelta(t, 90, laps[0].LapTime, 0.001)
	assert.InDelta(t, 180, laps[0].AvgSpeed, 0.001)
}

func TestProcessor_EmptySession(t *testing.T) {
	p, err := NewProcessor(testConfig())
	require.NoError(t, err)

	assert.True(t, p.FuelState().InsufficientData)
	assert.True(t, p.TireState().InsufficientData)
	assert.True(t, p.DriverPerformance().InsufficientData)
	rec := p.Recommendation()
	require.NotNil(t, rec)
	assert.Equal(t, model.ActionPush, rec.Action)
	assert.Empty(t, p.Laps())
}

func TestProcessor_BufferCapacityOption(t *testing.T) {
	p, err := NewProcessor(testConfig(), WithBufferCapacity(3))
	require.NoError(t, err)
	feedStint(t, p, 10, 50, 2.4)
	assert.Equal(t, 3, p.SampleCount())
}
