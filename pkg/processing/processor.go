package processing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/driver"
	"github.com/pitwall/strategy-engine-go/pkg/processing/fuel"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
	"github.com/pitwall/strategy-engine-go/pkg/processing/strategy"
	"github.com/pitwall/strategy-engine-go/pkg/processing/tire"
)

var ErrInvalidConfiguration = errors.New("invalid session configuration")

type (
	// Processor owns the history buffer and analyzers of one session.
	// One concurrent writer (the ingest feed) and multiple concurrent
	// readers (snapshot queries) are supported; given the low sample
	// rate a single RWMutex is sufficient. All snapshots are pure
	// functions of the buffer content plus session config.
	Processor struct {
		mu        sync.RWMutex
		cfg       *model.SessionConfig
		buffer    *history.Buffer
		fuel      *fuel.Analyzer
		tire      *tire.Analyzer
		driver    *driver.Analyzer
		evaluator *strategy.Evaluator
	}
	ProcessorOption func(*Processor)
)

func WithBufferCapacity(capacity int) ProcessorOption {
	return func(p *Processor) {
		p.buffer = history.NewBuffer(history.WithCapacity(capacity))
	}
}

func WithWeights(w driver.Weights) ProcessorOption {
	return func(p *Processor) {
		p.driver = driver.NewAnalyzer(driver.WithWeights(w))
	}
}

func WithEvaluator(e *strategy.Evaluator) ProcessorOption {
	return func(p *Processor) {
		p.evaluator = e
	}
}

// NewProcessor validates the session config and assembles the
// analyzers. Nonsensical config values are fatal to this session only.
func NewProcessor(cfg *model.SessionConfig, opts ...ProcessorOption) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: missing config", ErrInvalidConfiguration)
	}
	if cfg.RaceLaps <= 0 {
		return nil, fmt.Errorf("%w: race length %d", ErrInvalidConfiguration, cfg.RaceLaps)
	}
	if cfg.TankCapacity <= 0 {
		return nil, fmt.Errorf("%w: tank capacity %.1f",
			ErrInvalidConfiguration, cfg.TankCapacity)
	}
	if cfg.AvgPitTime <= 0 {
		return nil, fmt.Errorf("%w: pit time %.1f", ErrInvalidConfiguration, cfg.AvgPitTime)
	}
	if cfg.OptimalTempMin >= cfg.OptimalTempMax {
		return nil, fmt.Errorf("%w: temp window [%.0f,%.0f]",
			ErrInvalidConfiguration, cfg.OptimalTempMin, cfg.OptimalTempMax)
	}
	refuelThreshold := cfg.RefuelThreshold
	if refuelThreshold <= 0 {
		refuelThreshold = fuel.DefaultRefuelThreshold
	}
	ret := &Processor{
		cfg:       cfg,
		buffer:    history.NewBuffer(),
		fuel:      fuel.NewAnalyzer(fuel.WithRefuelThreshold(refuelThreshold)),
		tire:      tire.NewAnalyzer(tire.WithOptimalWindow(cfg.OptimalTempMin, cfg.OptimalTempMax)),
		driver:    driver.NewAnalyzer(),
		evaluator: strategy.NewEvaluator(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

// ProcessSample appends one sample to the session history.
// Returns history.ErrOutOfOrderSample on invariant violations; the
// buffer is unchanged in that case.
func (p *Processor) ProcessSample(s model.TelemetrySample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.Append(s)
}

func (p *Processor) Config() *model.SessionConfig {
	return p.cfg
}

func (p *Processor) SampleCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.buffer.Len()
}

// FuelState computes the current fuel snapshot.
func (p *Processor) FuelState() model.FuelState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fuel.Analyze(p.buffer, p.lapsToGo())
}

// TireState computes the current tire snapshot.
func (p *Processor) TireState() model.TireState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tireState()
}

// DriverPerformance computes the technique scores; the fuel and tire
// composite terms are fed from the other analyzers.
func (p *Processor) DriverPerformance() model.DriverPerformance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fuelScore := driver.FuelEfficiencyScore(p.fuel.Analyze(p.buffer, p.lapsToGo()))
	tireScore := driver.TireManagementScore(p.tireState())
	return p.driver.Analyze(p.buffer, fuelScore, tireScore)
}

// Recommendation evaluates the strategy precedence list against fresh
// snapshots. Upstream insufficient-data states disable the affected
// categories only; the default recommendation is always reachable.
func (p *Processor) Recommendation() *model.StrategyRecommendation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	params := &strategy.Params{
		Fuel:       p.fuel.Analyze(p.buffer, p.lapsToGo()),
		Tire:       p.tireState(),
		AvgPitTime: p.cfg.AvgPitTime,
	}
	if last, ok := p.buffer.Last(); ok {
		params.CurrentLap = last.Lap
		params.GapAhead = last.GapAhead
		params.GapBehind = last.GapBehind
	}
	return p.evaluator.Evaluate(params)
}

// Laps summarizes all completed laps currently held in the buffer.
func (p *Processor) Laps() []model.LapSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	type boundary struct{ lap, idx int }
	bounds := make([]boundary, 0)
	for lap, idx := range p.buffer.LapBoundaries() {
		bounds = append(bounds, boundary{lap, idx})
	}
	ret := make([]model.LapSummary, 0, len(bounds))
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i].idx, bounds[i+1].idx
		sum := model.LapSummary{LapNumber: bounds[i].lap}
		speedSum := 0.0
		for j := from; j < to; j++ {
			s := p.buffer.At(j)
			speedSum += s.Speed
			if s.Speed > sum.MaxSpeed {
				sum.MaxSpeed = s.Speed
			}
		}
		sum.AvgSpeed = speedSum / float64(to-from)
		sum.FuelUsed = p.buffer.At(from).FuelLevel - p.buffer.At(to).FuelLevel
		if t := p.buffer.At(to).LapTime; t > 0 {
			sum.LapTime = t
		} else {
			sum.LapTime = float64(p.buffer.At(to).Timestamp-p.buffer.At(from).Timestamp) / 1000
		}
		ret = append(ret, sum)
	}
	return ret
}

// callers must hold at least the read lock
func (p *Processor) tireState() model.TireState {
	currentLap := 0
	if last, ok := p.buffer.Last(); ok {
		currentLap = last.Lap
	}
	return p.tire.Analyze(p.buffer, p.lapsOnTires(currentLap), currentLap)
}

// lapsOnTires is the stint age: laps since the last pit service
// (detected via the refuel jump) or, absent one, since the oldest
// buffered sample.
func (p *Processor) lapsOnTires(currentLap int) int {
	stintStartLap := 0
	threshold := p.cfg.RefuelThreshold
	if threshold <= 0 {
		threshold = fuel.DefaultRefuelThreshold
	}
	if idx, ok := p.buffer.LastFuelJump(threshold); ok {
		stintStartLap = p.buffer.At(idx).Lap
	} else if p.buffer.Len() > 0 {
		stintStartLap = p.buffer.At(0).Lap
	}
	if laps := currentLap - stintStartLap; laps > 0 {
		return laps
	}
	return 0
}

func (p *Processor) lapsToGo() float64 {
	last, ok := p.buffer.Last()
	if !ok {
		return float64(p.cfg.RaceLaps)
	}
	if toGo := p.cfg.RaceLaps - last.Lap; toGo > 0 {
		return float64(toGo)
	}
	return 0
}
