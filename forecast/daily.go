// Package forecast turns the provider's 3-hourly forecast list into the
// per-day summary shown to the user.
package forecast

import (
	"time"

	"city-weather/models"
)

// MaxDays is the number of days following today that NextDays returns
const MaxDays = 5

const dateKeyLayout = "2006-01-02"

// DateKey returns the calendar date of t in loc, without time of day
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateKeyLayout)
}

// Buckets picks one representative sample per calendar date, in the order
// the dates are first seen. The first sample of a date wins; later samples of
// the same date are ignored even if they are earlier in the day.
func Buckets(series *models.ForecastSeries, loc *time.Location) []models.DailyBucket {
	if series == nil || len(series.Samples) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	buckets := make([]models.DailyBucket, 0, MaxDays+1)
	for _, sample := range series.Samples {
		key := DateKey(sample.Timestamp, loc)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		buckets = append(buckets, models.DailyBucket{Date: key, Sample: sample})
	}
	return buckets
}

// NextDays returns up to MaxDays buckets for the days after the first date in
// the series. The first date is taken to be today. Input order is trusted:
// the series is not sorted, so out-of-order input yields out-of-order output.
//
// Each bucket keeps its sample verbatim, so its min/max only describe that
// sample's 3-hour window rather than the whole day.
func NextDays(series *models.ForecastSeries, loc *time.Location) []models.DailyBucket {
	buckets := Buckets(series, loc)
	if len(buckets) <= 1 {
		return []models.DailyBucket{}
	}

	next := buckets[1:]
	if len(next) > MaxDays {
		next = next[:MaxDays]
	}

	out := make([]models.DailyBucket, len(next))
	copy(out, next)
	return out
}
