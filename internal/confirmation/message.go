package confirmation

import (
	"strings"
	"time"

	"github.com/wolfman30/clinicops/internal/availability"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Recipient is the patient-facing context a reminder is rendered with.
type Recipient struct {
	PatientName  string
	Email        string
	Phone        string
	ClinicName   string
	Professional string
	StartsAt     time.Time
	Timezone     string
	Locale       string
}

const (
	keySubject  = "confirmation.subject"
	keyAdvance  = "confirmation.advance"
	keyImminent = "confirmation.imminent"
	keyGreeting = "confirmation.greeting"
)

var (
	messageTags    = []language.Tag{language.BrazilianPortuguese, language.AmericanEnglish, language.Spanish}
	messageMatcher = language.NewMatcher(messageTags)
	messageCatalog = buildMessageCatalog()
)

func buildMessageCatalog() catalog.Catalog {
	b := catalog.NewBuilder()
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	pt := language.BrazilianPortuguese
	set(pt, keySubject, "Confirmação da sua consulta em %s")
	set(pt, keyGreeting, "Olá %s!")
	set(pt, keyAdvance, "Lembrete: sua consulta em %s com %s está marcada para %s às %s. Responda SIM para confirmar ou NÃO para remarcar.")
	set(pt, keyImminent, "Sua consulta em %s com %s começa hoje às %s. Até já!")

	en := language.AmericanEnglish
	set(en, keySubject, "Confirm your appointment at %s")
	set(en, keyGreeting, "Hi %s!")
	set(en, keyAdvance, "Reminder: your appointment at %s with %s is on %s at %s. Reply YES to confirm or NO to reschedule.")
	set(en, keyImminent, "Your appointment at %s with %s starts today at %s. See you soon!")

	es := language.Spanish
	set(es, keySubject, "Confirmación de su cita en %s")
	set(es, keyGreeting, "¡Hola %s!")
	set(es, keyAdvance, "Recordatorio: su cita en %s con %s es el %s a las %s. Responda SÍ para confirmar o NO para reprogramar.")
	set(es, keyImminent, "Su cita en %s con %s comienza hoy a las %s. ¡Hasta pronto!")
	return b
}

func messagePrinter(locale string) *message.Printer {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return message.NewPrinter(messageTags[0], message.Catalog(messageCatalog))
	}
	_, idx, conf := messageMatcher.Match(tag)
	if conf == language.No {
		idx = 0
	}
	return message.NewPrinter(messageTags[idx], message.Catalog(messageCatalog))
}

// RenderMessage builds the subject and body of the reminder for stage.
// Dates and times are shown in the recipient's timezone and locale; an
// unknown timezone falls back to UTC so a reminder is still delivered.
func RenderMessage(stage Stage, r Recipient) (subject, body string) {
	loc, err := availability.LoadLocation(r.Timezone)
	if err != nil {
		loc = time.UTC
	}
	p := messagePrinter(r.Locale)
	date, tod := availability.LocalLabels(r.StartsAt, loc, r.Locale)

	subject = p.Sprintf(keySubject, r.ClinicName)

	var lines []string
	if name := strings.TrimSpace(r.PatientName); name != "" {
		lines = append(lines, p.Sprintf(keyGreeting, name))
	}
	if stage == Stage2h {
		lines = append(lines, p.Sprintf(keyImminent, r.ClinicName, r.Professional, tod))
	} else {
		lines = append(lines, p.Sprintf(keyAdvance, r.ClinicName, r.Professional, date, tod))
	}
	return subject, strings.Join(lines, " ")
}
