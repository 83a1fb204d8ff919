package driver

import (
	"math"

	"github.com/samber/lo"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
)

// Scaling constants for the technique scores. Like the tire model these
// are empirically chosen tunables with no physical derivation.
const (
	MinSamples             = 10
	DefaultSmoothnessScale = 2000.0
	DefaultInputRateScale  = 500.0
	DefaultPrecisionScale  = 10.0

	peakGReference = 3.0 // G treated as the 100-score ceiling
)

type (
	// Weights for the overall composite score. The values are a design
	// decision, not derived; override via WithWeights.
	Weights struct {
		Consistency    float64 `json:"consistency"`
		Smoothness     float64 `json:"smoothness"`
		Precision      float64 `json:"precision"`
		FuelEfficiency float64 `json:"fuelEfficiency"`
		TireManagement float64 `json:"tireManagement"`
	}
	// Analyzer derives technique scores from the session history.
	Analyzer struct {
		minSamples      int
		smoothnessScale float64
		inputRateScale  float64
		precisionScale  float64
		weights         Weights
	}
	Option func(*Analyzer)
)

func DefaultWeights() Weights {
	return Weights{
		Consistency:    0.25,
		Smoothness:     0.20,
		Precision:      0.20,
		FuelEfficiency: 0.15,
		TireManagement: 0.20,
	}
}

func WithWeights(w Weights) Option {
	return func(a *Analyzer) {
		a.weights = w
	}
}

func WithSmoothnessScale(scale float64) Option {
	return func(a *Analyzer) {
		a.smoothnessScale = scale
	}
}

func WithMinSamples(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minSamples = n
		}
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	ret := &Analyzer{
		minSamples:      MinSamples,
		smoothnessScale: DefaultSmoothnessScale,
		inputRateScale:  DefaultInputRateScale,
		precisionScale:  DefaultPrecisionScale,
		weights:         DefaultWeights(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Analyze computes the technique scores over the full available
// history. Below the minimum sample count all scores are zero and
// InsufficientData is set; no score is ever fabricated.
// fuelScore and tireScore are the composite inputs contributed by the
// fuel and tire analyzers (see FuelEfficiencyScore/TireManagementScore).
//
//nolint:whitespace // can't make both editor and linter happy
func (a *Analyzer) Analyze(
	buf *history.Buffer, fuelScore, tireScore float64,
) model.DriverPerformance {
	if buf.Len() < a.minSamples {
		return model.DriverPerformance{InsufficientData: true}
	}
	ret := model.DriverPerformance{
		ConsistencyScore: a.consistency(buf),
		SmoothnessScore:  a.smoothness(buf),
		AggressionScore:  a.aggression(buf),
		PrecisionScore:   a.precision(buf),
	}
	ret.OverallScore = clampScore(ret.ConsistencyScore*a.weights.Consistency +
		ret.SmoothnessScore*a.weights.Smoothness +
		ret.PrecisionScore*a.weights.Precision +
		clampScore(fuelScore)*a.weights.FuelEfficiency +
		clampScore(tireScore)*a.weights.TireManagement)
	return ret
}

// consistency is 100 minus the stddev of completed lap times as a
// percentage of their mean.
func (a *Analyzer) consistency(buf *history.Buffer) float64 {
	lapTimes := completedLapTimes(buf)
	if len(lapTimes) < 2 {
		return 0
	}
	mean := lo.Sum(lapTimes) / float64(len(lapTimes))
	if mean <= 0 {
		return 0
	}
	return clampScore(100 - stddev(lapTimes, mean)/mean*100)
}

// smoothness is the inverse of the mean absolute tick-to-tick steering
// delta, scaled by the smoothness constant.
func (a *Analyzer) smoothness(buf *history.Buffer) float64 {
	sum := 0.0
	for i := 1; i < buf.Len(); i++ {
		sum += math.Abs(buf.At(i).Steering - buf.At(i-1).Steering)
	}
	meanDelta := sum / float64(buf.Len()-1)
	return clampScore(100 - meanDelta*a.smoothnessScale)
}

// aggression combines the throttle/brake application rate with the
// peak longitudinal acceleration derived from speed deltas.
func (a *Analyzer) aggression(buf *history.Buffer) float64 {
	inputSum := 0.0
	peakG := 0.0
	for i := 1; i < buf.Len(); i++ {
		prev, cur := buf.At(i-1), buf.At(i)
		inputSum += math.Abs(cur.Throttle-prev.Throttle) +
			math.Abs(cur.Brake-prev.Brake)
		if dt := float64(cur.Timestamp-prev.Timestamp) / 1000; dt > 0 {
			accel := math.Abs(cur.Speed-prev.Speed) / 3.6 / dt
			peakG = math.Max(peakG, accel/9.81)
		}
	}
	inputRate := clampScore(inputSum / float64(buf.Len()-1) * a.inputRateScale)
	gScore := clampScore(peakG / peakGReference * 100)
	return clampScore(0.6*inputRate + 0.4*gScore)
}

// precision measures line repeatability: per sector, the stddev of the
// mean sector speed across laps, inverted. Sectors visited on fewer
// than 2 laps are excluded from the average, not treated as zero.
func (a *Analyzer) precision(buf *history.Buffer) float64 {
	type key struct{ lap, sector int }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for i := 0; i < buf.Len(); i++ {
		s := buf.At(i)
		k := key{s.Lap, s.Sector}
		sums[k] += s.Speed
		counts[k]++
	}
	bySector := make(map[int][]float64)
	for k, sum := range sums {
		bySector[k.sector] = append(bySector[k.sector], sum/float64(counts[k]))
	}
	scores := make([]float64, 0, len(bySector))
	for _, speeds := range bySector {
		if len(speeds) < 2 {
			continue
		}
		mean := lo.Sum(speeds) / float64(len(speeds))
		if mean <= 0 {
			continue
		}
		pct := stddev(speeds, mean) / mean * 100
		scores = append(scores, clampScore(100-pct*a.precisionScale))
	}
	if len(scores) == 0 {
		return 0
	}
	return lo.Sum(scores) / float64(len(scores))
}

// FuelEfficiencyScore maps a fuel snapshot onto the composite input.
// Insufficient data contributes a neutral midpoint.
func FuelEfficiencyScore(fs model.FuelState) float64 {
	if fs.InsufficientData {
		return 50
	}
	if fs.CanFinish {
		return 100
	}
	return clampScore(100 - fs.RequiredSavingsPct*2)
}

// TireManagementScore maps a tire snapshot onto the composite input.
func TireManagementScore(ts model.TireState) float64 {
	if ts.InsufficientData {
		return 50
	}
	score := ts.GripRemainingPct
	if ts.IsOverheating {
		score -= 20
	}
	return clampScore(score)
}

// completedLapTimes collects one lap time per completed lap. The lap
// time of lap N is carried by the samples of lap N+1.
func completedLapTimes(buf *history.Buffer) []float64 {
	times := make([]float64, 0)
	for _, idx := range buf.LapBoundaries() {
		if t := buf.At(idx).LapTime; t > 0 {
			times = append(times, t)
		}
	}
	return times
}

func stddev(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clampScore(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
