package model

// tire corner indexes used in TireTemp/TireWear
const (
	TireFL = iota
	TireFR
	TireRL
	TireRR
	NumTires
)

// TelemetrySample is one tick of vehicle state as delivered by the
// simulator adapter. All times are seconds, volumes liters, temps °C.
type TelemetrySample struct {
	Timestamp int64              `json:"timestamp"` // monotonic, ms
	Lap       int                `json:"lap"`
	Sector    int                `json:"sector"`
	Speed     float64            `json:"speed"` // km/h
	Throttle  float64            `json:"throttle"` // 0..1
	Brake     float64            `json:"brake"`    // 0..1
	Steering  float64            `json:"steering"` // signed, normalized
	FuelLevel float64            `json:"fuelLevel"`
	TireTemp  [NumTires]float64  `json:"tireTemp"`
	TireWear  [NumTires]float64  `json:"tireWear"` // 0..1
	LapTime   float64            `json:"lapTime"`  // 0 while lap incomplete
	TrackPos  float64            `json:"trackPos"` // lap fraction 0..1
	GapAhead  *float64           `json:"gapAhead,omitempty"`  // seconds
	GapBehind *float64           `json:"gapBehind,omitempty"` // seconds
}

// LapSummary is computed on demand from lap boundaries. Never stored.
type LapSummary struct {
	LapNumber int     `json:"lapNumber"`
	LapTime   float64 `json:"lapTime"`
	FuelUsed  float64 `json:"fuelUsed"`
	AvgSpeed  float64 `json:"avgSpeed"`
	MaxSpeed  float64 `json:"maxSpeed"`
}
