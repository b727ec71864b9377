package models

import (
	"fmt"
	"time"
)

// Coordinate is the location attached to an alert.
type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" validate:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// Fix is a coordinate reported by a location source at a point in time.
type Fix struct {
	Coordinate Coordinate `json:"coordinate"`
	Accuracy   float64    `json:"accuracy,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

func (f Fix) Age(now time.Time) time.Duration {
	return now.Sub(f.Timestamp)
}
