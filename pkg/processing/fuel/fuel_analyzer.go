package fuel

import (
	"sort"

	"github.com/samber/lo"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
)

const (
	DefaultLapWindow       = 10 // completed laps considered for the estimate
	DefaultRefuelThreshold = 5.0
)

type (
	// Analyzer derives the fuel situation from the session history.
	Analyzer struct {
		lapWindow       int
		refuelThreshold float64
	}
	Option func(*Analyzer)
)

func WithLapWindow(laps int) Option {
	return func(a *Analyzer) {
		if laps > 0 {
			a.lapWindow = laps
		}
	}
}

func WithRefuelThreshold(liters float64) Option {
	return func(a *Analyzer) {
		if liters > 0 {
			a.refuelThreshold = liters
		}
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	ret := &Analyzer{
		lapWindow:       DefaultLapWindow,
		refuelThreshold: DefaultRefuelThreshold,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Analyze computes the fuel snapshot. The per lap consumption is the
// median fuel delta over the last completed laps. With fewer than 2
// completed laps since the last refuel the snapshot reports
// InsufficientData instead of a fabricated estimate.
func (a *Analyzer) Analyze(buf *history.Buffer, lapsToGo float64) model.FuelState {
	ret := model.FuelState{LapsToGo: lapsToGo, InsufficientData: true}
	last, ok := buf.Last()
	if !ok {
		return ret
	}
	ret.CurrentLevel = last.FuelLevel

	deltas := a.lapDeltas(buf)
	if len(deltas) < 2 {
		return ret
	}
	perLap := median(deltas)
	if perLap <= 0 {
		return ret
	}
	ret.InsufficientData = false
	ret.PerLapConsumption = perLap
	ret.RemainingLaps = ret.CurrentLevel / perLap
	ret.CanFinish = ret.RemainingLaps >= lapsToGo
	if !ret.CanFinish && lapsToGo > 0 {
		pct := (lapsToGo - ret.RemainingLaps) / lapsToGo * 100
		ret.RequiredSavingsPct = min(max(pct, 0), 100)
	}
	return ret
}

// lapDeltas returns the positive fuel deltas between the first samples
// of consecutive laps, newest last, capped to the configured lap
// window. Laps before the most recent refuel are excluded; a refuel or
// caution lap produces a non-positive or outlier delta which the
// median absorbs.
func (a *Analyzer) lapDeltas(buf *history.Buffer) []float64 {
	minIdx := 0
	if idx, ok := buf.LastFuelJump(a.refuelThreshold); ok {
		minIdx = idx
	}
	starts := make([]float64, 0)
	for _, idx := range buf.LapBoundaries() {
		if idx >= minIdx {
			starts = append(starts, buf.At(idx).FuelLevel)
		}
	}
	deltas := make([]float64, 0, len(starts))
	for i := 1; i < len(starts); i++ {
		deltas = append(deltas, starts[i-1]-starts[i])
	}
	deltas = lo.Filter(deltas, func(d float64, _ int) bool { return d > 0 })
	if len(deltas) > a.lapWindow {
		deltas = deltas[len(deltas)-a.lapWindow:]
	}
	return deltas
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
