// Command lookup runs one weather search from the terminal, either directly
// against OpenWeatherMap or through a running service's JSON API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"city-weather/api"
	"city-weather/datasource"
	"city-weather/forecast"
	"city-weather/query"
	"city-weather/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	serverURL := flag.String("server", "", "Base URL of a running service, e.g. http://localhost:8080")
	city := flag.String("city", "", "City to look up (or pass it as arguments)")
	lang := flag.String("lang", envOr("OWM_LANG", "pt_br"), "Language of the headings when using -server")
	flag.Parse()

	if *city == "" {
		*city = strings.Join(flag.Args(), " ")
	}

	var (
		report searchReport
		err    error
	)
	if *serverURL != "" {
		report, err = remoteSearch(context.Background(), http.DefaultClient, *serverURL, *city, web.StringsFor(forecast.MatchLanguage(*lang)))
	} else {
		report, err = localSearch(context.Background(), *configFile, *city)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, report)
	if report.Failed() {
		os.Exit(2)
	}
}

// searchReport is what gets printed: both panels, formatted
type searchReport struct {
	City         string
	Current      *web.CurrentView
	CurrentErr   string
	Days         []web.DayView
	ForecastErr  string
	HasForecast  bool
	ForecastHead string
}

// Failed reports whether neither lookup produced data
func (r searchReport) Failed() bool {
	return r.Current == nil && !r.HasForecast
}

func localSearch(ctx context.Context, configFile, city string) (searchReport, error) {
	config, err := datasource.LoadConfig(configFile)
	if err != nil {
		return searchReport{}, err
	}
	loc, err := config.Location()
	if err != nil {
		return searchReport{}, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := datasource.NewClient(&http.Client{Timeout: config.Query.Timeout}, "openweathermap",
		config.OpenWeatherMap.BreakerMaxFailures, 30*time.Second)
	provider := datasource.NewOpenWeatherMapProvider(config.OpenWeatherMap, client, logger)
	searcher := query.NewSearcher(provider, config.Query.Timeout, config.Query.MaxCityChars, logger)

	renderer, err := web.NewRenderer(web.Options{
		IconBaseURL: config.OpenWeatherMap.IconBaseURL,
		Units:       config.OpenWeatherMap.Units,
		Lang:        config.OpenWeatherMap.Lang,
		Location:    loc,
	})
	if err != nil {
		return searchReport{}, err
	}

	return buildReport(renderer, searcher.Search(ctx, city)), nil
}

func buildReport(renderer *web.Renderer, outcome query.Outcome) searchReport {
	strs := renderer.Strings()
	report := searchReport{City: outcome.City, ForecastHead: strs.ForecastTitle}

	if outcome.Current.OK() {
		view := renderer.Current(outcome.Current.Value)
		report.Current = &view
	} else {
		report.CurrentErr = strs.ErrorMessage(outcome.Current.Err.Code)
	}

	if outcome.Forecast.OK() {
		report.HasForecast = true
		report.Days = renderer.Days(&outcome.Forecast.Value)
	} else {
		report.ForecastErr = strs.ErrorMessage(outcome.Forecast.Err.Code)
	}
	return report
}

func remoteSearch(ctx context.Context, client *http.Client, baseURL, city string, strs web.Strings) (searchReport, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/api/search?city=" + url.QueryEscape(city)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return searchReport{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return searchReport{}, fmt.Errorf("failed to reach %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return searchReport{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.APIErrorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Code == "" {
			return searchReport{}, fmt.Errorf("service returned status %d", resp.StatusCode)
		}
		return searchReport{City: city, CurrentErr: apiErr.Error.Message, ForecastErr: apiErr.Error.Message}, nil
	}

	var envelope struct {
		Data struct {
			City    string `json:"city"`
			Current struct {
				Data  *web.CurrentView `json:"data"`
				Error *api.ErrorDetail `json:"error"`
			} `json:"current"`
			Forecast struct {
				Data  json.RawMessage  `json:"data"`
				Error *api.ErrorDetail `json:"error"`
			} `json:"forecast"`
			NextDays []web.DayView `json:"nextDays"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return searchReport{}, fmt.Errorf("failed to decode response: %w", err)
	}
	data := envelope.Data

	report := searchReport{
		City:         data.City,
		Current:      data.Current.Data,
		Days:         data.NextDays,
		HasForecast:  len(data.Forecast.Data) > 0,
		ForecastHead: strs.ForecastTitle,
	}
	if data.Current.Error != nil {
		report.CurrentErr = data.Current.Error.Message
	}
	if data.Forecast.Error != nil {
		report.ForecastErr = data.Forecast.Error.Message
	}
	if report.Current == nil && report.CurrentErr == "" && !report.HasForecast {
		return searchReport{}, errors.New("service returned an empty result")
	}
	return report, nil
}

func printReport(w io.Writer, r searchReport) {
	fmt.Fprintf(w, "%s\n%s\n", r.City, strings.Repeat("=", len([]rune(r.City))))

	switch {
	case r.Current != nil:
		c := r.Current
		line := strings.TrimSpace(strings.Join([]string{c.Temperature, c.Description}, "  "))
		fmt.Fprintf(w, "%s: %s\n", c.Name, line)
		for _, detail := range []string{c.FeelsLike, c.Humidity, c.Pressure} {
			if detail != "" {
				fmt.Fprintf(w, "  %s\n", detail)
			}
		}
		if r.CurrentErr != "" {
			fmt.Fprintf(w, "  (%s)\n", r.CurrentErr)
		}
	case r.CurrentErr != "":
		fmt.Fprintf(w, "Current: %s\n", r.CurrentErr)
	}

	fmt.Fprintln(w)
	switch {
	case r.HasForecast:
		fmt.Fprintln(w, r.ForecastHead)
		for _, day := range r.Days {
			fmt.Fprintf(w, "  %-20s %6s %6s  %s\n", day.Label, day.Min, day.Max, day.Description)
		}
	case r.ForecastErr != "":
		fmt.Fprintf(w, "Forecast: %s\n", r.ForecastErr)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
