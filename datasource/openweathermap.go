package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"city-weather/models"
)

const maxResponseBytes = 2 << 20

// OpenWeatherMapProvider implements both WeatherProvider and ForecastSource interfaces
type OpenWeatherMapProvider struct {
	apiKey  string
	baseURL string
	lang    string
	units   string
	client  *Client
	logger  *slog.Logger
}

// Ensure OpenWeatherMapProvider implements Provider
var _ Provider = (*OpenWeatherMapProvider)(nil)

// NewOpenWeatherMapProvider creates a new OpenWeatherMap provider
func NewOpenWeatherMapProvider(cfg OpenWeatherMapConfig, client *Client, logger *slog.Logger) *OpenWeatherMapProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenWeatherMapProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		lang:    cfg.Lang,
		units:   cfg.Units,
		client:  client,
		logger:  logger.With(slog.String("provider", "OpenWeatherMap")),
	}
}

// Name returns the provider name
func (p *OpenWeatherMapProvider) Name() string {
	return "OpenWeatherMap"
}

type owmCondition struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
	Pressure  *float64 `json:"pressure"`
	Humidity  *float64 `json:"humidity"`
}

type owmCurrentResponse struct {
	Name    string         `json:"name"`
	Dt      int64          `json:"dt"`
	Main    *owmMain       `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastItem struct {
	Dt      *int64         `json:"dt"`
	Main    *owmMain       `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List *[]owmForecastItem `json:"list"`
}

// owmErrorResponse is the body OpenWeatherMap sends with non-200 answers.
// "cod" is a string on some endpoints and a number on others, so it is ignored.
type owmErrorResponse struct {
	Message string `json:"message"`
}

// GetWeather fetches current weather for a city
func (p *OpenWeatherMapProvider) GetWeather(ctx context.Context, city string) (models.CurrentConditions, error) {
	body, err := p.get(ctx, "weather", city)
	if err != nil {
		return models.CurrentConditions{}, err
	}

	var response owmCurrentResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return models.CurrentConditions{}, NewQueryError(ErrCodeMalformed, fmt.Errorf("failed to parse response: %w", err))
	}
	if response.Main == nil && len(response.Weather) == 0 && response.Name == "" {
		return models.CurrentConditions{}, NewQueryError(ErrCodeMalformed, fmt.Errorf("current weather response has no name, main or weather"))
	}

	data := models.CurrentConditions{
		Provider:  p.Name(),
		Name:      response.Name,
		Condition: firstCondition(response.Weather),
		Timestamp: time.Now().UTC(),
	}
	if response.Dt > 0 {
		data.Timestamp = time.Unix(response.Dt, 0).UTC()
	}
	if response.Main != nil {
		data.Temperature = response.Main.Temp
		data.FeelsLike = response.Main.FeelsLike
		data.Humidity = response.Main.Humidity
		data.Pressure = response.Main.Pressure
	}
	if data.Name == "" {
		data.Name = city
	}

	return data, nil
}

// FetchForecast fetches the 5-day forecast, which OpenWeatherMap returns in 3-hour steps
func (p *OpenWeatherMapProvider) FetchForecast(ctx context.Context, city string) (models.ForecastSeries, error) {
	body, err := p.get(ctx, "forecast", city)
	if err != nil {
		return models.ForecastSeries{}, err
	}

	var response owmForecastResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return models.ForecastSeries{}, NewQueryError(ErrCodeMalformed, fmt.Errorf("failed to parse response: %w", err))
	}
	if response.List == nil {
		return models.ForecastSeries{}, NewQueryError(ErrCodeMalformed, fmt.Errorf("forecast response has no list"))
	}

	series := models.ForecastSeries{
		Provider: p.Name(),
		City:     response.City.Name,
		Samples:  make([]models.ForecastSample, 0, len(*response.List)),
		Updated:  time.Now().UTC(),
	}
	if series.City == "" {
		series.City = city
	}

	skipped := 0
	for _, item := range *response.List {
		if item.Dt == nil || *item.Dt <= 0 {
			skipped++
			continue
		}

		sample := models.ForecastSample{
			Timestamp: time.Unix(*item.Dt, 0).UTC(),
			Condition: firstCondition(item.Weather),
		}
		if item.Main != nil {
			sample.Temperature = item.Main.Temp
			sample.TemperatureMin = item.Main.TempMin
			sample.TemperatureMax = item.Main.TempMax
			sample.FeelsLike = item.Main.FeelsLike
			sample.Humidity = item.Main.Humidity
			sample.Pressure = item.Main.Pressure
		}
		series.Samples = append(series.Samples, sample)
	}
	if skipped > 0 {
		p.logger.Warn("skipped forecast samples without timestamp",
			slog.String("city", city),
			slog.Int("skipped", skipped),
		)
	}

	return series, nil
}

// get performs one GET against endpoint and returns the body of a 200 answer
func (p *OpenWeatherMapProvider) get(ctx context.Context, endpoint, city string) ([]byte, error) {
	params := url.Values{}
	params.Add("q", city)
	params.Add("appid", p.apiKey)
	params.Add("lang", p.lang)
	params.Add("units", p.units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, NewQueryError(ErrCodeInternal, fmt.Errorf("failed to create request: %w", err))
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("upstream request failed",
			slog.String("endpoint", endpoint),
			slog.String("city", city),
			slog.Any("error", err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	p.logger.Debug("upstream request complete",
		slog.String("endpoint", endpoint),
		slog.String("city", city),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		var upstream owmErrorResponse
		_ = json.Unmarshal(body, &upstream)
		return nil, errorForStatus(resp.StatusCode, upstream.Message)
	}

	return body, nil
}

func firstCondition(conditions []owmCondition) *models.Condition {
	if len(conditions) == 0 {
		return nil
	}
	c := conditions[0]
	return &models.Condition{
		Code:        c.ID,
		Description: c.Description,
		Icon:        c.Icon,
	}
}

// IconURL builds the icon image address for an icon identifier. An empty
// identifier has no image.
func IconURL(base, icon string) string {
	if icon == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(icon) + ".png"
}
