package web

import (
	"city-weather/datasource"

	"golang.org/x/text/language"
)

// Strings are the fixed UI texts for one language
type Strings struct {
	Lang            string
	Title           string
	Placeholder     string
	Button          string
	LoadingCurrent  string
	LoadingForecast string
	FeelsLike       string
	Humidity        string
	Pressure        string
	ForecastTitle   string
	Min             string
	Max             string
	IconAlt         string
	NoForecastDays  string
	TooManySearches string

	errors map[datasource.ErrorCode]string
}

// ErrorMessage returns the localized text for code, falling back to the
// provider-neutral English message.
func (s Strings) ErrorMessage(code datasource.ErrorCode) string {
	if msg, ok := s.errors[code]; ok {
		return msg
	}
	return datasource.DefaultMessage(code)
}

var portuguese = Strings{
	Lang:            "pt-BR",
	Title:           "Previsão do Tempo",
	Placeholder:     "Digite o nome da cidade",
	Button:          "Buscar",
	LoadingCurrent:  "Carregando informações do clima...",
	LoadingForecast: "Carregando previsão...",
	FeelsLike:       "Sensação térmica",
	Humidity:        "Umidade",
	Pressure:        "Pressão",
	ForecastTitle:   "Previsão dos próximos 5 dias",
	Min:             "mín",
	Max:             "máx",
	IconAlt:         "Ícone do clima",
	NoForecastDays:  "Sem previsão para os próximos dias",
	TooManySearches: "Muitas buscas seguidas, aguarde um instante e tente novamente",
	errors: map[datasource.ErrorCode]string{
		datasource.ErrCodeEmptyCity:    "Digite o nome de uma cidade",
		datasource.ErrCodeCityTooLong:  "Nome de cidade muito longo",
		datasource.ErrCodeCityNotFound: "Cidade não encontrada",
		datasource.ErrCodeUnauthorized: "O serviço de clima recusou a chave de acesso",
		datasource.ErrCodeRateLimited:  "Muitas consultas ao serviço de clima, tente novamente mais tarde",
		datasource.ErrCodeUnavailable:  "Serviço de clima indisponível",
		datasource.ErrCodeTimeout:      "O serviço de clima não respondeu a tempo",
		datasource.ErrCodeNetwork:      "Não foi possível contatar o serviço de clima",
		datasource.ErrCodeMalformed:    "Resposta inesperada do serviço de clima",
		datasource.ErrCodeCanceled:     "Busca substituída por uma mais recente",
		datasource.ErrCodeInternal:     "Ocorreu um erro inesperado",
	},
}

var english = Strings{
	Lang:            "en",
	Title:           "Weather Forecast",
	Placeholder:     "Enter a city name",
	Button:          "Search",
	LoadingCurrent:  "Loading weather information...",
	LoadingForecast: "Loading forecast...",
	FeelsLike:       "Feels like",
	Humidity:        "Humidity",
	Pressure:        "Pressure",
	ForecastTitle:   "Next 5 days",
	Min:             "min",
	Max:             "max",
	IconAlt:         "Weather icon",
	NoForecastDays:  "No forecast for the coming days",
	TooManySearches: "Too many searches, wait a moment and try again",
}

// StringsFor returns the UI texts for a matched language
func StringsFor(tag language.Tag) Strings {
	if tag == language.English {
		return english
	}
	return portuguese
}
