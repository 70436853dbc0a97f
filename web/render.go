// Package web renders the search page from a session's view state.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strconv"
	"time"

	"city-weather/datasource"
	"city-weather/forecast"
	"city-weather/models"

	"golang.org/x/text/language"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded stylesheet tree, rooted at static/
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Options configure a Renderer
type Options struct {
	IconBaseURL string
	Units       string
	Lang        string
	Location    *time.Location
}

// Renderer turns view state into page models and HTML
type Renderer struct {
	tmpl     *template.Template
	iconBase string
	unit     string
	lang     language.Tag
	loc      *time.Location
	strings  Strings
}

// NewRenderer parses the embedded page template
func NewRenderer(opts Options) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	lang := forecast.MatchLanguage(opts.Lang)

	return &Renderer{
		tmpl:     tmpl,
		iconBase: opts.IconBaseURL,
		unit:     UnitSymbol(opts.Units),
		lang:     lang,
		loc:      loc,
		strings:  StringsFor(lang),
	}, nil
}

// Page is everything the template needs
type Page struct {
	Strings  Strings
	City     string
	Current  CurrentPanel
	Forecast ForecastPanel
}

// CurrentPanel is the current-conditions region. Exactly one of Loading,
// Data or a lone Error is shown; Error next to Data means the latest search
// failed and the previous result is kept.
type CurrentPanel struct {
	Loading bool
	Error   string
	Data    *CurrentView
}

// CurrentView holds display-ready current conditions
type CurrentView struct {
	Name        string `json:"name"`
	IconURL     string `json:"iconUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	FeelsLike   string `json:"feelsLike,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
	Pressure    string `json:"pressure,omitempty"`
}

// ForecastPanel is the five-day region
type ForecastPanel struct {
	Loading bool
	Error   string
	Days    []DayView
	HasData bool
}

// DayView is one of the next five days
type DayView struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	IconURL     string `json:"iconUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// Strings returns the texts of the configured language
func (r *Renderer) Strings() Strings {
	return r.strings
}

// Build derives the page model from state
func (r *Renderer) Build(state models.ViewState) Page {
	page := Page{
		Strings: r.strings,
		City:    state.City,
		Current: CurrentPanel{
			Loading: state.Current.Loading(),
			Error:   r.panelError(state.Current.ErrorCode, state.Current.Error),
		},
		Forecast: ForecastPanel{
			Loading: state.Forecast.Loading(),
			Error:   r.panelError(state.Forecast.ErrorCode, state.Forecast.Error),
		},
	}

	if state.Current.Data != nil {
		view := r.Current(*state.Current.Data)
		page.Current.Data = &view
	}
	if state.Forecast.Data != nil {
		page.Forecast.HasData = true
		page.Forecast.Days = r.Days(state.Forecast.Data)
	}

	return page
}

// Render writes the full HTML page for state
func (r *Renderer) Render(w io.Writer, state models.ViewState) error {
	return r.tmpl.ExecuteTemplate(w, "index.html.tmpl", r.Build(state))
}

// Current formats current conditions. Absent readings become empty strings.
func (r *Renderer) Current(data models.CurrentConditions) CurrentView {
	view := CurrentView{
		Name:        data.Name,
		Temperature: r.temperature(data.Temperature),
		FeelsLike:   r.temperature(data.FeelsLike),
		Humidity:    withSuffix(data.Humidity, "%"),
		Pressure:    withSuffix(data.Pressure, " hPa"),
	}
	if data.Condition != nil {
		view.IconURL = datasource.IconURL(r.iconBase, data.Condition.Icon)
		view.Description = data.Condition.Description
	}
	return view
}

// Days selects and formats the next five days of series
func (r *Renderer) Days(series *models.ForecastSeries) []DayView {
	buckets := forecast.NextDays(series, r.loc)

	days := make([]DayView, 0, len(buckets))
	for _, bucket := range buckets {
		sample := bucket.Sample
		day := DayView{
			Date:  bucket.Date,
			Label: forecast.DayLabel(sample.Timestamp, r.loc, r.lang),
			Min:   r.temperature(sample.TemperatureMin),
			Max:   r.temperature(sample.TemperatureMax),
		}
		if sample.Condition != nil {
			day.IconURL = datasource.IconURL(r.iconBase, sample.Condition.Icon)
			day.Description = sample.Condition.Description
		}
		days = append(days, day)
	}
	return days
}

func (r *Renderer) panelError(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return r.strings.ErrorMessage(datasource.ErrorCode(code))
}

func (r *Renderer) temperature(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(roundHalfUp(*v), 10) + r.unit
}

func withSuffix(v *float64, suffix string) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + suffix
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// UnitSymbol returns the temperature suffix for a provider unit system
func UnitSymbol(units string) string {
	switch units {
	case "imperial":
		return "°F"
	case "standard":
		return " K"
	default:
		return "°C"
	}
}
