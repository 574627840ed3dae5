package availability

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const msgNoSlots = "No available slots."

// digestLocale carries the layouts used for one supported language.
type digestLocale struct {
	tag        language.Tag
	dateLayout string
	timeLayout string
}

// The first entry is the fallback when negotiation finds no match.
var digestLocales = []digestLocale{
	{tag: language.BrazilianPortuguese, dateLayout: "02/01/2006", timeLayout: "15:04"},
	{tag: language.AmericanEnglish, dateLayout: "01/02/2006", timeLayout: "3:04 PM"},
	{tag: language.Spanish, dateLayout: "02/01/2006", timeLayout: "15:04"},
}

var (
	digestMatcher = func() language.Matcher {
		tags := make([]language.Tag, len(digestLocales))
		for i, l := range digestLocales {
			tags[i] = l.tag
		}
		return language.NewMatcher(tags)
	}()
	digestCatalog = buildDigestCatalog()
)

func buildDigestCatalog() catalog.Catalog {
	b := catalog.NewBuilder()
	translations := map[language.Tag]map[string]string{
		language.BrazilianPortuguese: {
			msgNoSlots:  "Nenhum horário disponível.",
			"Sunday":    "domingo",
			"Monday":    "segunda-feira",
			"Tuesday":   "terça-feira",
			"Wednesday": "quarta-feira",
			"Thursday":  "quinta-feira",
			"Friday":    "sexta-feira",
			"Saturday":  "sábado",
		},
		language.AmericanEnglish: {
			msgNoSlots:  msgNoSlots,
			"Sunday":    "Sunday",
			"Monday":    "Monday",
			"Tuesday":   "Tuesday",
			"Wednesday": "Wednesday",
			"Thursday":  "Thursday",
			"Friday":    "Friday",
			"Saturday":  "Saturday",
		},
		language.Spanish: {
			msgNoSlots:  "No hay horarios disponibles.",
			"Sunday":    "domingo",
			"Monday":    "lunes",
			"Tuesday":   "martes",
			"Wednesday": "miércoles",
			"Thursday":  "jueves",
			"Friday":    "viernes",
			"Saturday":  "sábado",
		},
	}
	for tag, msgs := range translations {
		for key, msg := range msgs {
			// SetString only fails on malformed message syntax.
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// matchLocale negotiates a BCP 47 locale against the supported languages.
func matchLocale(locale string) digestLocale {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return digestLocales[0]
	}
	_, idx, conf := digestMatcher.Match(tag)
	if conf == language.No {
		return digestLocales[0]
	}
	return digestLocales[idx]
}

// FormatSlotsForLLM renders slots as one line per local calendar date, in
// the order dates are first seen, each listing the local start times:
//
//	segunda-feira, 16/02/2026: 08:00, 08:30, 09:00
//
// An empty list renders a localized "no slots" sentence.
func FormatSlotsForLLM(slots []Slot, timezone, locale string) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	l := matchLocale(locale)
	p := message.NewPrinter(l.tag, message.Catalog(digestCatalog))

	if len(slots) == 0 {
		return p.Sprintf(msgNoSlots), nil
	}

	var order []string
	byDate := make(map[string][]string)
	for _, s := range slots {
		label, tod := localLabels(p, l, s.Start.In(loc))
		if _, seen := byDate[label]; !seen {
			order = append(order, label)
		}
		byDate[label] = append(byDate[label], tod)
	}

	lines := make([]string, 0, len(order))
	for _, label := range order {
		lines = append(lines, label+": "+strings.Join(byDate[label], ", "))
	}
	return strings.Join(lines, "\n"), nil
}

// LocalLabels renders t in loc as the date label and time of day used by
// the digest, e.g. "segunda-feira, 16/02/2026" and "08:00".
func LocalLabels(t time.Time, loc *time.Location, locale string) (date, timeOfDay string) {
	l := matchLocale(locale)
	p := message.NewPrinter(l.tag, message.Catalog(digestCatalog))
	return localLabels(p, l, t.In(loc))
}

func localLabels(p *message.Printer, l digestLocale, local time.Time) (string, string) {
	return p.Sprintf(local.Weekday().String()) + ", " + local.Format(l.dateLayout), local.Format(l.timeLayout)
}

// ParseDigestTime reads back a time of day emitted by FormatSlotsForLLM for
// the given date, timezone and locale, returning the instant it denotes.
func ParseDigestTime(value, date, timezone, locale string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	l := matchLocale(locale)
	tod, err := time.Parse(l.timeLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: parse digest time %q: %w", value, err)
	}
	return ZonedInstant(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), loc), nil
}
