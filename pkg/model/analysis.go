package model

// Action is the closed set of strategy recommendations.
type Action string

const (
	ActionPitNow      Action = "pit_now"
	ActionPitNextLap  Action = "pit_next_lap"
	ActionStayOut     Action = "stay_out"
	ActionFuelSave    Action = "fuel_save"
	ActionManageTires Action = "manage_tires"
	ActionPush        Action = "push"
)

// Priority of a recommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// FuelState is a derived snapshot of the fuel situation.
// When InsufficientData is set the numeric estimates are not usable.
type FuelState struct {
	CurrentLevel       float64 `json:"currentLevel"`
	PerLapConsumption  float64 `json:"perLapConsumption"`
	RemainingLaps      float64 `json:"remainingLaps"`
	LapsToGo           float64 `json:"lapsToGo"`
	CanFinish          bool    `json:"canFinish"`
	RequiredSavingsPct float64 `json:"requiredSavingsPct"`
	InsufficientData   bool    `json:"insufficientData"`
}

// TireState is a derived snapshot of the tire situation.
// The degradation figures are an uncalibrated heuristic, not a physical
// model. Do not present them as exact to end users.
type TireState struct {
	CornerTemps           [NumTires]float64 `json:"cornerTemps"`
	AvgTemp               float64           `json:"avgTemp"`
	InOptimalWindow       bool              `json:"inOptimalWindow"`
	IsOverheating         bool              `json:"isOverheating"`
	LapsOnTires           int               `json:"lapsOnTires"`
	DegradationRatePerLap float64           `json:"degradationRatePerLap"`
	GripRemainingPct      float64           `json:"gripRemainingPct"`
	RecommendedChangeLap  *int              `json:"recommendedChangeLap,omitempty"`
	InsufficientData      bool              `json:"insufficientData"`
}

// DriverPerformance holds technique scores, each in [0,100].
type DriverPerformance struct {
	ConsistencyScore float64 `json:"consistencyScore"`
	SmoothnessScore  float64 `json:"smoothnessScore"`
	AggressionScore  float64 `json:"aggressionScore"`
	PrecisionScore   float64 `json:"precisionScore"`
	OverallScore     float64 `json:"overallScore"`
	InsufficientData bool    `json:"insufficientData"`
}

// SupportingData carries the figures that justified a recommendation.
type SupportingData struct {
	Fuel      *FuelState `json:"fuel,omitempty"`
	Tire      *TireState `json:"tire,omitempty"`
	GapAhead  *float64   `json:"gapAhead,omitempty"`
	GapBehind *float64   `json:"gapBehind,omitempty"`
}

// StrategyRecommendation is the single ranked output of the recommender.
type StrategyRecommendation struct {
	Action         Action         `json:"action"`
	Priority       Priority       `json:"priority"`
	Reason         string         `json:"reason"`
	SupportingData SupportingData `json:"supportingData"`
}
