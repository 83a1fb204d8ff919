//nolint:funlen // ok for tests
package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
)

type sampleOpt func(*model.TelemetrySample)

// stintBuffer builds laps*samplesPerLap samples with constant speed and
// inputs; opts mutate each sample for scenario specific noise.
func stintBuffer(t *testing.T, laps, samplesPerLap int, opts ...sampleOpt) *history.Buffer {
	t.Helper()
	buf := history.NewBuffer()
	ts := int64(0)
	for lap := 1; lap <= laps; lap++ {
		for j := 0; j < samplesPerLap; j++ {
			s := model.TelemetrySample{
				Timestamp: ts,
				Lap:       lap,
				Sector:    j * 3 / samplesPerLap,
				Speed:     180,
				Throttle:  1,
				FuelLevel: 50,
			}
			if j == 0 && lap > 1 {
				s.LapTime = 90
			}
			for _, opt := range opts {
				opt(&s)
			}
			require.NoError(t, buf.Append(s))
			ts += 500
		}
	}
	return buf
}

func TestAnalyzer_InsufficientSamples(t *testing.T) {
	buf := stintBuffer(t, 1, 5)
	got := NewAnalyzer().Analyze(buf, 50, 50)

	assert.True(t, got.InsufficientData)
	assert.Zero(t, got.OverallScore)
	assert.Zero(t, got.ConsistencyScore)
}

func TestAnalyzer_SteadyDriving(t *testing.T) {
	buf := stintBuffer(t, 4, 6)
	got := NewAnalyzer().Analyze(buf, 100, 100)

	require.False(t, got.InsufficientData)
	// identical lap times, frozen steering, repeatable sector speeds
	assert.InDelta(t, 100, got.ConsistencyScore, 0.001)
	assert.InDelta(t, 100, got.SmoothnessScore, 0.001)
	assert.InDelta(t, 100, got.PrecisionScore, 0.001)
	// constant speed and inputs: nothing aggressive happening
	assert.Zero(t, got.AggressionScore)
}

func TestAnalyzer_ScoresBounded(t *testing.T) {
	i := 0
	buf := stintBuffer(t, 5, 8, func(s *model.TelemetrySample) {
		// violent inputs and erratic pace
		i++
		s.Steering = float64(i%2) - 0.5
		s.Throttle = float64(i % 2)
		s.Brake = float64((i + 1) % 2)
		s.Speed = 120 + float64(i%3)*60
		if s.LapTime > 0 {
			s.LapTime = 80 + float64(i%4)*15
		}
	})
	got := NewAnalyzer().Analyze(buf, 0, 0)

	for name, score := range map[string]float64{
		"consistency": got.ConsistencyScore,
		"smoothness":  got.SmoothnessScore,
		"aggression":  got.AggressionScore,
		"precision":   got.PrecisionScore,
		"overall":     got.OverallScore,
	} {
		assert.GreaterOrEqual(t, score, 0.0, name)
		assert.LessOrEqual(t, score, 100.0, name)
	}
	assert.Positive(t, got.AggressionScore)
}

func TestAnalyzer_SmoothnessPenalizesSawing(t *testing.T) {
	i := 0
	sawing := stintBuffer(t, 3, 6, func(s *model.TelemetrySample) {
		i++
		s.Steering = float64(i%2)*0.1 - 0.05
	})
	steady := stintBuffer(t, 3, 6)

	a := NewAnalyzer()
	assert.Less(t,
		a.Analyze(sawing, 50, 50).SmoothnessScore,
		a.Analyze(steady, 50, 50).SmoothnessScore)
}

func TestAnalyzer_WeightedOverall(t *testing.T) {
	buf := stintBuffer(t, 4, 6)
	got := NewAnalyzer().Analyze(buf, 100, 100)

	// consistency/smoothness/precision at 100, aggression unweighted,
	// fuel and tire contributions at 100
	want := 100*0.25 + 100*0.20 + 100*0.20 + 100*0.15 + 100*0.20
	assert.InDelta(t, want, got.OverallScore, 0.001)
}

func TestFuelEfficiencyScore(t *testing.T) {
	tests := []struct {
		name string
		fs   model.FuelState
		want float64
	}{
		{"insufficient data is neutral", model.FuelState{InsufficientData: true}, 50},
		{"can finish", model.FuelState{CanFinish: true}, 100},
		{"needs saving", model.FuelState{RequiredSavingsPct: 20}, 60},
		{"hopeless", model.FuelState{RequiredSavingsPct: 80}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FuelEfficiencyScore(tt.fs), 0.001)
		})
	}
}

func TestTireManagementScore(t *testing.T) {
	tests := []struct {
		name string
		ts   model.TireState
		want float64
	}{
		{"insufficient data is neutral", model.TireState{InsufficientData: true}, 50},
		{"fresh tires", model.TireState{GripRemainingPct: 95}, 95},
		{"overheating penalty", model.TireState{GripRemainingPct: 80, IsOverheating: true}, 60},
		{"worn and hot", model.TireState{GripRemainingPct: 10, IsOverheating: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TireManagementScore(tt.ts), 0.001)
		})
	}
}
