package model

import "time"

// SessionConfig is supplied once at session start by the external caller.
type SessionConfig struct {
	Name            string  `json:"name"`
	RaceLaps        int     `json:"raceLaps"`
	TankCapacity    float64 `json:"tankCapacity"`    // liters
	AvgPitTime      float64 `json:"avgPitTime"`      // seconds
	OptimalTempMin  float64 `json:"optimalTempMin"`  // °C, car class specific
	OptimalTempMax  float64 `json:"optimalTempMax"`  // °C
	RefuelThreshold float64 `json:"refuelThreshold"` // liters
}

// DefaultSessionConfig returns a config with the documented defaults.
// RaceLaps and TankCapacity have no sensible defaults and must be set.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		AvgPitTime:      45,
		OptimalTempMin:  85,
		OptimalTempMax:  95,
		RefuelThreshold: 5,
	}
}

// SessionInfo describes a registered session.
type SessionInfo struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	LastDataAt time.Time `json:"lastDataAt"`
}
