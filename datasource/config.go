package datasource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. Values are layered:
// DefaultConfig, then the optional YAML file, then environment variables.
type Config struct {
	OpenWeatherMap OpenWeatherMapConfig `yaml:"openWeatherMap"`
	Server         ServerConfig         `yaml:"server"`
	Session        SessionConfig        `yaml:"session"`
	Query          QueryConfig          `yaml:"query"`

	// DisplayTimezone is the IANA zone used for calendar dates and day labels
	DisplayTimezone string `yaml:"displayTimezone" envconfig:"DISPLAY_TIMEZONE" validate:"required"`
	LogLevel        string `yaml:"logLevel" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// OpenWeatherMapConfig holds the upstream access settings
type OpenWeatherMapConfig struct {
	APIKey      string `yaml:"apiKey" envconfig:"OWM_API_KEY" validate:"required"`
	BaseURL     string `yaml:"baseURL" envconfig:"OWM_BASE_URL" validate:"required,url"`
	IconBaseURL string `yaml:"iconBaseURL" envconfig:"OWM_ICON_BASE_URL" validate:"required,url,startswith=https://"`
	Lang        string `yaml:"lang" envconfig:"OWM_LANG" validate:"required"`
	Units       string `yaml:"units" envconfig:"OWM_UNITS" validate:"oneof=metric imperial standard"`

	// BreakerMaxFailures is the number of consecutive upstream failures
	// after which lookups fail fast until the breaker half-opens
	BreakerMaxFailures uint32 `yaml:"breakerMaxFailures" envconfig:"OWM_BREAKER_MAX_FAILURES" validate:"min=1"`
}

// ServerConfig controls the HTTP front end
type ServerConfig struct {
	Port            int     `yaml:"port" envconfig:"HTTP_PORT" validate:"min=1,max=65535"`
	SearchRatePerIP float64 `yaml:"searchRatePerIP" envconfig:"HTTP_SEARCH_RATE" validate:"gt=0"`
	SearchBurst     int     `yaml:"searchBurst" envconfig:"HTTP_SEARCH_BURST" validate:"min=1"`
}

// SessionConfig controls how long idle browser sessions keep their view state
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idleTTL" envconfig:"SESSION_IDLE_TTL" validate:"gt=0"`
	PruneSchedule string        `yaml:"pruneSchedule" envconfig:"SESSION_PRUNE_SCHEDULE" validate:"required"`
}

// QueryConfig bounds a single search attempt
type QueryConfig struct {
	Timeout      time.Duration `yaml:"timeout" envconfig:"QUERY_TIMEOUT" validate:"gt=0"`
	MaxCityChars int           `yaml:"maxCityChars" envconfig:"QUERY_MAX_CITY_CHARS" validate:"min=1"`
}

// ConfigError reports which stage of loading failed
type ConfigError struct {
	Stage string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DefaultConfig creates a default configuration. The API key is never defaulted.
func DefaultConfig() *Config {
	return &Config{
		OpenWeatherMap: OpenWeatherMapConfig{
			BaseURL:            "https://api.openweathermap.org/data/2.5",
			IconBaseURL:        "https://openweathermap.org/img/wn",
			Lang:               "pt_br",
			Units:              "metric",
			BreakerMaxFailures: 5,
		},
		Server: ServerConfig{
			Port:            8080,
			SearchRatePerIP: 1,
			SearchBurst:     5,
		},
		Session: SessionConfig{
			IdleTTL:       time.Hour,
			PruneSchedule: "@every 10m",
		},
		Query: QueryConfig{
			Timeout:      10 * time.Second,
			MaxCityChars: 100,
		},
		DisplayTimezone: "Local",
		LogLevel:        "info",
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at
// filename (a missing file is not an error) and the environment, then
// validates the result.
func LoadConfig(filename string) (*Config, error) {
	// .env never overrides variables already present in the environment
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, &ConfigError{Stage: "read", Err: fmt.Errorf("failed to read config file %s: %w", filename, err)}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &ConfigError{Stage: "parse", Err: fmt.Errorf("failed to parse config file %s: %w", filename, err)}
			}
		}
	}

	// No envconfig defaults: unset variables leave file and default values
	// alone. Tags carry the full variable name, nested structs add no prefix
	// of their own that could be set.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, &ConfigError{Stage: "env", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints and that the display zone resolves
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigError{Stage: "validation", Err: err}
	}
	if _, err := c.Location(); err != nil {
		return &ConfigError{Stage: "validation", Err: err}
	}
	return nil
}

// Location resolves DisplayTimezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", c.DisplayTimezone, err)
	}
	return loc, nil
}
