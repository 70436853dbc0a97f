package models

import (
	"time"
)

// CurrentConditions is the "right now" snapshot for a city
type CurrentConditions struct {
	Provider    string     `json:"provider"`
	Name        string     `json:"name"`
	Temperature *float64   `json:"temperature"`
	FeelsLike   *float64   `json:"feelsLike"`
	Humidity    *float64   `json:"humidity"`
	Pressure    *float64   `json:"pressure"`
	Condition   *Condition `json:"condition,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}
