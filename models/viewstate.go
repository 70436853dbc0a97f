package models

import (
	"time"
)

// Panel is one display region's backing state. A panel with neither data nor
// error is still loading.
type Panel[T any] struct {
	Data      *T        `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Loading reports whether the panel has nothing to show yet
func (p Panel[T]) Loading() bool {
	return p.Data == nil && p.Error == ""
}

// ViewState is the full display state of one browser session. Values are
// never mutated after they are published; each commit builds a new one.
type ViewState struct {
	Attempt  uint64                   `json:"attempt"`
	City     string                   `json:"city"`
	Current  Panel[CurrentConditions] `json:"current"`
	Forecast Panel[ForecastSeries]    `json:"forecast"`
}
