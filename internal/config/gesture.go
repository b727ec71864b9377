package config

import (
	"time"
)

// DefaultHoldThreshold is how long a press must be held to fire an
// immediate SOS.
const DefaultHoldThreshold = 2000 * time.Millisecond

type GestureConfig struct {
	HoldThreshold time.Duration `yaml:"hold_threshold"`
}

func loadGestureConfig() *GestureConfig {
	return &GestureConfig{
		HoldThreshold: getEnvAsDuration("GESTURE_HOLD_THRESHOLD", DefaultHoldThreshold),
	}
}
