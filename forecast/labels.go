package forecast

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

var weekdayNames = map[language.Tag][7]string{
	language.Portuguese: {"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
	language.English:    {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

var labelMatcher = language.NewMatcher([]language.Tag{
	language.Portuguese, // first entry is the fallback
	language.English,
})

// MatchLanguage maps a provider language code such as "pt_br" or "en" to the
// closest language the UI has strings for.
func MatchLanguage(code string) language.Tag {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		tag = language.Und
	}
	_, index, _ := labelMatcher.Match(tag)
	switch index {
	case 1:
		return language.English
	default:
		return language.Portuguese
	}
}

// DayLabel formats the weekday name and two-digit day of month of t in loc.
// It only affects presentation, never bucket selection.
func DayLabel(t time.Time, loc *time.Location, lang language.Tag) string {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)

	names, ok := weekdayNames[lang]
	if !ok {
		names = weekdayNames[language.Portuguese]
	}
	weekday := names[local.Weekday()]

	// Word order follows each locale: "terça-feira, 05" and "05 Tuesday"
	if lang == language.English {
		return fmt.Sprintf("%02d %s", local.Day(), weekday)
	}
	return fmt.Sprintf("%s, %02d", weekday, local.Day())
}
