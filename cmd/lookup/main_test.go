package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"city-weather/datasource"
	"city-weather/models"
	"city-weather/query"
	"city-weather/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newRenderer(t *testing.T) *web.Renderer {
	t.Helper()
	r, err := web.NewRenderer(web.Options{
		IconBaseURL: "https://openweathermap.org/img/wn",
		Units:       "metric",
		Lang:        "en",
		Location:    time.UTC,
	})
	require.NoError(t, err)
	return r
}

func value(v float64) *float64 { return &v }

func TestBuildReport_BothPanels(t *testing.T) {
	start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	series := models.ForecastSeries{City: "Porto"}
	for i := 0; i < 16; i++ {
		series.Samples = append(series.Samples, models.ForecastSample{
			Timestamp:      start.Add(time.Duration(i*6) * time.Hour),
			TemperatureMin: value(11.5),
			TemperatureMax: value(17.2),
		})
	}

	outcome := query.Outcome{
		City:     "Porto",
		Current:  query.Result[models.CurrentConditions]{Value: models.CurrentConditions{Name: "Porto", Temperature: value(14.6)}},
		Forecast: query.Result[models.ForecastSeries]{Value: series},
	}

	report := buildReport(newRenderer(t), outcome)
	require.NotNil(t, report.Current)
	assert.Equal(t, "15°C", report.Current.Temperature)
	assert.Len(t, report.Days, 3)
	assert.False(t, report.Failed())

	var out bytes.Buffer
	printReport(&out, report)
	assert.Contains(t, out.String(), "Porto: 15°C")
	assert.Contains(t, out.String(), "05 Tuesday")
	assert.Contains(t, out.String(), "12°C")
}

func TestBuildReport_BothFailed(t *testing.T) {
	err := datasource.NewQueryError(datasource.ErrCodeCityNotFound, nil)
	outcome := query.Outcome{
		City:     "Atlantis",
		Current:  query.Result[models.CurrentConditions]{Err: err},
		Forecast: query.Result[models.ForecastSeries]{Err: err},
	}

	report := buildReport(newRenderer(t), outcome)
	assert.True(t, report.Failed())

	var out bytes.Buffer
	printReport(&out, report)
	assert.Contains(t, out.String(), "Current: "+report.CurrentErr)
	assert.Contains(t, out.String(), "Forecast: "+report.ForecastErr)
}

func TestRemoteSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		if r.URL.Query().Get("city") == "Atlantis" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"not_found_city","message":"city not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"city":"São Paulo","current":{"data":{"name":"São Paulo","temperature":"25°C"}},` +
			`"forecast":{"data":{"samples":[]}},"nextDays":[{"date":"2024-03-05","label":"05 Tuesday","min":"19°C","max":"27°C"}]}}`))
	}))
	defer srv.Close()

	report, err := remoteSearch(context.Background(), srv.Client(), srv.URL, "São Paulo", web.StringsFor(language.English))
	require.NoError(t, err)
	require.NotNil(t, report.Current)
	assert.Equal(t, "25°C", report.Current.Temperature)
	assert.True(t, report.HasForecast)
	assert.Len(t, report.Days, 1)
	assert.Equal(t, "Next 5 days", report.ForecastHead)

	var out bytes.Buffer
	printReport(&out, report)
	assert.Contains(t, out.String(), "Next 5 days")

	report, err = remoteSearch(context.Background(), srv.Client(), srv.URL, "Atlantis", web.StringsFor(language.English))
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, "city not found", report.CurrentErr)
}
