package datasource

import (
	"context"

	"city-weather/models"
)

// WeatherProvider is an interface for services that can fetch current weather data
type WeatherProvider interface {
	// GetWeather fetches current conditions for a city
	GetWeather(ctx context.Context, city string) (models.CurrentConditions, error)

	// Name returns the provider's name
	Name() string
}

// ForecastSource is an interface for services that can fetch the 3-hourly forecast
type ForecastSource interface {
	// FetchForecast fetches the full 5-day/3-hour forecast list for a city
	FetchForecast(ctx context.Context, city string) (models.ForecastSeries, error)

	// Name returns the source's name
	Name() string
}

// Provider is a backend that serves both lookups of a query
type Provider interface {
	WeatherProvider
	ForecastSource
}
