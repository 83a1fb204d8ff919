package strategy

import (
	"fmt"

	"github.com/pitwall/strategy-engine-go/pkg/model"
)

const (
	DefaultUndercutTireAge      = 10
	DefaultPaceAdvantage        = 0.3 // s/lap, estimated advantage while staying out
	DefaultSharpDegradationRate = 0.75
	DefaultMaxFeasibleSavings   = 25.0 // % beyond which fuel saving cannot bridge the gap

	criticalFuelLaps = 2.0
	criticalGripPct  = 30.0
	windowFuelLaps   = 5.0
	windowGripPct    = 50.0
	minSavingsPct    = 5.0
	overcutMinLaps   = 3.0
	undercutMargin   = 3.0 // s added on top of the pit time for the in-gap check
)

type (
	// Params is the complete input of one evaluation. Gap values may be
	// absent. A snapshot with InsufficientData set disables the checks
	// of that category; the evaluator falls through to the remaining
	// rules and never fails on partial data.
	Params struct {
		Fuel       model.FuelState
		Tire       model.TireState
		CurrentLap int
		GapAhead   *float64
		GapBehind  *float64
		AvgPitTime float64 // seconds
	}
	// Evaluator is a stateless decision function; every call evaluates
	// the precedence list fresh. Hysteresis is the caller's concern.
	Evaluator struct {
		undercutTireAge      int
		paceAdvantage        float64
		sharpDegradationRate float64
		maxFeasibleSavings   float64
	}
	Option func(*Evaluator)
)

func WithUndercutTireAge(laps int) Option {
	return func(e *Evaluator) {
		e.undercutTireAge = laps
	}
}

func WithPaceAdvantage(secPerLap float64) Option {
	return func(e *Evaluator) {
		e.paceAdvantage = secPerLap
	}
}

func WithSharpDegradationRate(pctPerLap float64) Option {
	return func(e *Evaluator) {
		e.sharpDegradationRate = pctPerLap
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	ret := &Evaluator{
		undercutTireAge:      DefaultUndercutTireAge,
		paceAdvantage:        DefaultPaceAdvantage,
		sharpDegradationRate: DefaultSharpDegradationRate,
		maxFeasibleSavings:   DefaultMaxFeasibleSavings,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Evaluate walks the fixed precedence list and returns the first match.
// Every branch carries a reason referencing the numeric trigger; the
// voice/UI layer depends on that.
//
//nolint:funlen,cyclop // precedence list reads best as one unit
func (e *Evaluator) Evaluate(p *Params) *model.StrategyRecommendation {
	fuelOK := !p.Fuel.InsufficientData
	tireOK := !p.Tire.InsufficientData

	rec := func(action model.Action, prio model.Priority, reason string) *model.StrategyRecommendation {
		ret := &model.StrategyRecommendation{
			Action:   action,
			Priority: prio,
			Reason:   reason,
			SupportingData: model.SupportingData{
				GapAhead:  p.GapAhead,
				GapBehind: p.GapBehind,
			},
		}
		if fuelOK {
			f := p.Fuel
			ret.SupportingData.Fuel = &f
		}
		if tireOK {
			t := p.Tire
			ret.SupportingData.Tire = &t
		}
		return ret
	}

	// 1. pit_now (critical)
	if fuelOK && p.Fuel.RemainingLaps < criticalFuelLaps {
		return rec(model.ActionPitNow, model.PriorityCritical,
			fmt.Sprintf("fuel for %.1f laps, %.0f needed",
				p.Fuel.RemainingLaps, criticalFuelLaps))
	}
	if fuelOK && !p.Fuel.CanFinish && p.Fuel.RequiredSavingsPct > e.maxFeasibleSavings {
		return rec(model.ActionPitNow, model.PriorityCritical,
			fmt.Sprintf("fuel for %.1f of %.0f laps, %.0f%% saving not feasible",
				p.Fuel.RemainingLaps, p.Fuel.LapsToGo, p.Fuel.RequiredSavingsPct))
	}
	if tireOK && p.Tire.GripRemainingPct < criticalGripPct {
		return rec(model.ActionPitNow, model.PriorityCritical,
			fmt.Sprintf("grip at %.0f%%, below %.0f%% floor",
				p.Tire.GripRemainingPct, criticalGripPct))
	}
	if gap, open := e.undercutOpen(p, tireOK); open {
		return rec(model.ActionPitNow, model.PriorityCritical,
			fmt.Sprintf("undercut open: gap %.1fs inside pit loss %.1fs, tires %d laps old",
				gap, p.AvgPitTime+undercutMargin, p.Tire.LapsOnTires))
	}

	// 2. pit_next_lap (high)
	if fuelOK {
		if lo, hi, in := e.pitWindow(p); in {
			return rec(model.ActionPitNextLap, model.PriorityHigh,
				fmt.Sprintf("lap %d inside pit window [%d,%d]",
					p.CurrentLap, lo, hi))
		}
		if p.Fuel.RemainingLaps >= criticalFuelLaps &&
			p.Fuel.RemainingLaps < windowFuelLaps {
			return rec(model.ActionPitNextLap, model.PriorityHigh,
				fmt.Sprintf("fuel for %.1f laps, below %.0f lap margin",
					p.Fuel.RemainingLaps, windowFuelLaps))
		}
	}
	if tireOK && p.Tire.GripRemainingPct >= criticalGripPct &&
		p.Tire.GripRemainingPct < windowGripPct {
		return rec(model.ActionPitNextLap, model.PriorityHigh,
			fmt.Sprintf("grip at %.0f%%, below %.0f%% margin",
				p.Tire.GripRemainingPct, windowGripPct))
	}

	// 3. fuel_save (medium)
	if fuelOK && !p.Fuel.CanFinish && p.Fuel.RequiredSavingsPct > minSavingsPct {
		return rec(model.ActionFuelSave, model.PriorityMedium,
			fmt.Sprintf("need %.1f%% fuel saving over %.0f laps",
				p.Fuel.RequiredSavingsPct, p.Fuel.LapsToGo))
	}

	// 4. manage_tires (medium)
	if tireOK && p.Tire.IsOverheating {
		return rec(model.ActionManageTires, model.PriorityMedium,
			fmt.Sprintf("tires overheating, avg %.0f°C", p.Tire.AvgTemp))
	}
	if tireOK && p.Tire.DegradationRatePerLap > e.sharpDegradationRate {
		return rec(model.ActionManageTires, model.PriorityMedium,
			fmt.Sprintf("degradation %.2f%%/lap above %.2f%%/lap threshold",
				p.Tire.DegradationRatePerLap, e.sharpDegradationRate))
	}

	// 5. stay_out (low)
	if gain, ok := e.overcutGain(p, fuelOK); ok {
		return rec(model.ActionStayOut, model.PriorityLow,
			fmt.Sprintf("overcut: projected %.1fs gain exceeds %.1fs gap",
				gain, *p.GapAhead))
	}

	// 6. push (low) - default, always reachable
	if fuelOK && tireOK {
		return rec(model.ActionPush, model.PriorityLow,
			fmt.Sprintf("fuel for %.1f laps, grip %.0f%%, clear to push",
				p.Fuel.RemainingLaps, p.Tire.GripRemainingPct))
	}
	return rec(model.ActionPush, model.PriorityLow,
		"insufficient data for fuel/tire strategy, defaulting to push")
}

// undercutOpen checks the in-gap against the pit loss: a short gap to
// the car ahead combined with aged tires means pitting now likely
// leapfrogs that car once it pits on worse tires.
func (e *Evaluator) undercutOpen(p *Params, tireOK bool) (float64, bool) {
	if p.GapAhead == nil || !tireOK {
		return 0, false
	}
	gap := *p.GapAhead
	open := gap > 0 && gap < p.AvgPitTime+undercutMargin &&
		p.Tire.LapsOnTires > e.undercutTireAge
	return gap, open
}

// overcutGain projects the time gained by staying out on current pace
// advantage; worthwhile when it exceeds the gap ahead and at least 3
// more laps are feasible before a forced stop.
func (e *Evaluator) overcutGain(p *Params, fuelOK bool) (float64, bool) {
	if p.GapAhead == nil || !fuelOK || *p.GapAhead <= 0 {
		return 0, false
	}
	if p.Fuel.RemainingLaps < overcutMinLaps {
		return 0, false
	}
	gain := (p.Fuel.RemainingLaps - 1) * e.paceAdvantage
	return gain, gain > *p.GapAhead
}
