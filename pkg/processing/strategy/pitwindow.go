package strategy

import "math"

// window margins around the optimal lap. Asymmetric: pitting early is
// lower risk than running out, so the early margin is smaller.
const (
	windowBefore   = 3
	windowAfter    = 5
	fuelSafetyLaps = 2
)

// pitWindow computes the optimal pit window from fuel range and tire
// change recommendation. Requires a valid fuel snapshot.
func (e *Evaluator) pitWindow(p *Params) (lo, hi int, inWindow bool) {
	fuelPitLap := p.CurrentLap + int(math.Floor(p.Fuel.RemainingLaps)) - fuelSafetyLaps
	optimalLap := fuelPitLap
	if !p.Tire.InsufficientData && p.Tire.RecommendedChangeLap != nil &&
		*p.Tire.RecommendedChangeLap < optimalLap {
		optimalLap = *p.Tire.RecommendedChangeLap
	}
	lo = optimalLap - windowBefore
	hi = optimalLap + windowAfter
	inWindow = p.CurrentLap >= lo && p.CurrentLap <= hi
	return lo, hi, inWindow
}
