package tire

import (
	"math"
	"time"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
)

// Heuristic constants. These are empirically chosen tunables, not
// derived from a physical tire model; see the analyzer doc below.
const (
	DefaultBaseRatePct  = 0.5 // grip loss %/lap at reference temp on fresh tires
	DefaultAgeFactor    = 0.01
	DefaultOverheatTemp = 105.0
	DefaultTempDivisor  = 50.0
	DefaultTempWindow   = 2 * time.Second

	changeNowGripPct  = 40.0
	changeSoonGripPct = 60.0
)

type (
	// Analyzer derives the tire situation from the session history.
	// The degradation model is a bounded heuristic: a base rate scaled
	// by temperature excess and tire age. It is not calibrated against
	// real tire data and must not be presented as exact.
	Analyzer struct {
		optimalMin   float64
		optimalMax   float64
		overheatTemp float64
		baseRatePct  float64
		ageFactor    float64
		tempDivisor  float64
		tempWindow   time.Duration
	}
	Option func(*Analyzer)
)

func WithOptimalWindow(minTemp, maxTemp float64) Option {
	return func(a *Analyzer) {
		a.optimalMin = minTemp
		a.optimalMax = maxTemp
	}
}

func WithOverheatTemp(temp float64) Option {
	return func(a *Analyzer) {
		a.overheatTemp = temp
	}
}

func WithBaseDegradationRate(pctPerLap float64) Option {
	return func(a *Analyzer) {
		a.baseRatePct = pctPerLap
	}
}

func WithAgeFactor(factor float64) Option {
	return func(a *Analyzer) {
		a.ageFactor = factor
	}
}

func WithTempWindow(window time.Duration) Option {
	return func(a *Analyzer) {
		a.tempWindow = window
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	ret := &Analyzer{
		optimalMin:   85,
		optimalMax:   95,
		overheatTemp: DefaultOverheatTemp,
		baseRatePct:  DefaultBaseRatePct,
		ageFactor:    DefaultAgeFactor,
		tempDivisor:  DefaultTempDivisor,
		tempWindow:   DefaultTempWindow,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Analyze computes the tire snapshot. lapsOnTires is the stint age as
// determined by the caller (laps since the last pit service).
func (a *Analyzer) Analyze(buf *history.Buffer, lapsOnTires, currentLap int) model.TireState {
	ret := model.TireState{LapsOnTires: lapsOnTires, InsufficientData: true}
	recent := buf.WindowDuration(a.tempWindow)
	if len(recent) == 0 {
		return ret
	}
	ret.InsufficientData = false

	for corner := range model.NumTires {
		sum := 0.0
		for i := range recent {
			sum += recent[i].TireTemp[corner]
		}
		ret.CornerTemps[corner] = sum / float64(len(recent))
		ret.AvgTemp += ret.CornerTemps[corner]
		if ret.CornerTemps[corner] > a.overheatTemp {
			ret.IsOverheating = true
		}
	}
	ret.AvgTemp /= model.NumTires
	ret.InOptimalWindow = ret.AvgTemp >= a.optimalMin && ret.AvgTemp <= a.optimalMax

	ret.DegradationRatePerLap = a.effectiveRate(ret.AvgTemp, lapsOnTires)
	ret.GripRemainingPct = math.Max(0,
		100-float64(lapsOnTires)*ret.DegradationRatePerLap)

	switch {
	case ret.GripRemainingPct < changeNowGripPct:
		lap := currentLap + 1
		ret.RecommendedChangeLap = &lap
	case ret.GripRemainingPct < changeSoonGripPct:
		lap := currentLap + 3
		ret.RecommendedChangeLap = &lap
	}
	return ret
}

// effectiveRate is the mean per-lap grip loss over the stint so far:
// the base rate scaled by temperature excess over the optimal window
// and by the age multiplier integrated over the stint laps.
func (a *Analyzer) effectiveRate(avgTemp float64, lapsOnTires int) float64 {
	tempMult := 1 + math.Max(0, avgTemp-a.optimalMax)/a.tempDivisor
	ageMult := 1 + a.ageFactor*float64(lapsOnTires+1)/2
	return a.baseRatePct * tempMult * ageMult
}
