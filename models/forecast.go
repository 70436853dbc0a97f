package models

import (
	"time"
)

// Condition is the provider's short weather classification for a reading
type Condition struct {
	Code        int    `json:"code"`        // provider condition id
	Description string `json:"description"` // localized text, e.g. "céu limpo"
	Icon        string `json:"icon"`        // icon identifier, e.g. "01d"
}

// ForecastSample is a single 3-hour forecast reading. Readings the provider
// omitted are nil and render as nothing.
type ForecastSample struct {
	Timestamp      time.Time  `json:"timestamp"`           // UTC
	Temperature    *float64   `json:"temperature"`         // in configured units
	TemperatureMin *float64   `json:"temperatureMin"`      // min of this 3-hour window only
	TemperatureMax *float64   `json:"temperatureMax"`      // max of this 3-hour window only
	FeelsLike      *float64   `json:"feelsLike"`           // in configured units
	Humidity       *float64   `json:"humidity"`            // percentage
	Pressure       *float64   `json:"pressure"`            // in hPa
	Condition      *Condition `json:"condition,omitempty"` // nil when weather[0] is missing
}

// ForecastSeries is the ordered forecast list for a city, as received.
// Samples are trusted to be ascending by timestamp; that is not verified.
type ForecastSeries struct {
	Provider string           `json:"provider"`
	City     string           `json:"city"`
	Samples  []ForecastSample `json:"samples"`
	Updated  time.Time        `json:"updated"`
}

// DailyBucket is the representative sample chosen for one calendar date
type DailyBucket struct {
	Date   string         `json:"date"` // YYYY-MM-DD in the display zone
	Sample ForecastSample `json:"sample"`
}
