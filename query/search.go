// Package query runs one search attempt: both upstream lookups for a city,
// concurrently, under a single deadline.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"city-weather/datasource"
	"city-weather/models"

	"golang.org/x/sync/errgroup"
)

// Result is either data or the reason the lookup failed, never both
type Result[T any] struct {
	Value T
	Err   *datasource.QueryError
}

// OK reports whether the lookup succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

func success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func failure[T any](err error) Result[T] {
	return Result[T]{Err: datasource.AsQueryError(err)}
}

// Outcome holds the two independent results of one search attempt
type Outcome struct {
	City     string
	Current  Result[models.CurrentConditions]
	Forecast Result[models.ForecastSeries]
	Duration time.Duration
}

// Failed reports whether both lookups failed
func (o Outcome) Failed() bool {
	return !o.Current.OK() && !o.Forecast.OK()
}

// Searcher issues the current-conditions and forecast lookups for a city
type Searcher struct {
	provider     datasource.Provider
	timeout      time.Duration
	maxCityChars int
	logger       *slog.Logger
}

// NewSearcher creates a Searcher. Each Search is bounded by timeout.
func NewSearcher(provider datasource.Provider, timeout time.Duration, maxCityChars int, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		provider:     provider,
		timeout:      timeout,
		maxCityChars: maxCityChars,
		logger:       logger,
	}
}

// NormalizeCity trims the user's input and rejects empty or overlong names
func (s *Searcher) NormalizeCity(raw string) (string, error) {
	city := strings.Join(strings.Fields(raw), " ")
	if city == "" {
		return "", datasource.NewQueryError(datasource.ErrCodeEmptyCity, nil)
	}
	if s.maxCityChars > 0 && utf8.RuneCountInString(city) > s.maxCityChars {
		return "", datasource.NewQueryError(datasource.ErrCodeCityTooLong,
			fmt.Errorf("city has %d characters, limit is %d", utf8.RuneCountInString(city), s.maxCityChars))
	}
	return city, nil
}

// Search runs both lookups concurrently. One lookup failing does not cancel
// the other; each result carries its own outcome. Invalid input fails both
// results without touching the network.
func (s *Searcher) Search(ctx context.Context, rawCity string) Outcome {
	start := time.Now()

	city, err := s.NormalizeCity(rawCity)
	if err != nil {
		return Outcome{
			City:     strings.TrimSpace(rawCity),
			Current:  failure[models.CurrentConditions](err),
			Forecast: failure[models.ForecastSeries](err),
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	outcome := Outcome{City: city}

	// Plain Group: the lookups are independent, so neither may cancel the other
	var g errgroup.Group
	g.Go(func() error {
		data, err := s.provider.GetWeather(ctx, city)
		if err != nil {
			outcome.Current = failure[models.CurrentConditions](err)
			return nil
		}
		outcome.Current = success(data)
		return nil
	})
	g.Go(func() error {
		series, err := s.provider.FetchForecast(ctx, city)
		if err != nil {
			outcome.Forecast = failure[models.ForecastSeries](err)
			return nil
		}
		outcome.Forecast = success(series)
		return nil
	})
	_ = g.Wait()

	outcome.Duration = time.Since(start)

	attrs := []any{
		slog.String("city", city),
		slog.Bool("current_ok", outcome.Current.OK()),
		slog.Bool("forecast_ok", outcome.Forecast.OK()),
		slog.Duration("duration", outcome.Duration),
	}
	if outcome.Failed() {
		s.logger.Warn("search failed", attrs...)
	} else {
		s.logger.Info("search complete", attrs...)
	}

	return outcome
}
