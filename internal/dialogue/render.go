package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/alpenlodge/concierge/internal/session"
)

// Action is a quick-reply button offered next to a chat answer. A
// postback feeds Message back into the chat, a link opens URL.
type Action struct {
	Type    string `json:"type"` // "postback" or "link"
	Label   string `json:"label"`
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
}

func englishLang(lang string) bool {
	return strings.HasPrefix(strings.ToLower(lang), "en")
}

func displayDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02.01.2006")
}

func formatPrice(amount float64, currency string) string {
	if currency == "" || currency == "EUR" {
		return fmt.Sprintf("%.2f €", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func (e *Engine) categoryActions(lang string) []Action {
	if englishLang(lang) {
		return []Action{
			{Type: "postback", Label: "Apartments", Message: "Show apartments"},
			{Type: "postback", Label: "Suites", Message: "Show suites"},
			{Type: "postback", Label: "Premium", Message: "Show premium suites"},
			{Type: "link", Label: "Booking page", URL: e.bookingPageURL},
		}
	}
	return []Action{
		{Type: "postback", Label: "Apartments", Message: "Apartments zeigen"},
		{Type: "postback", Label: "Suiten", Message: "Suiten zeigen"},
		{Type: "postback", Label: "Premium", Message: "Premium Suiten zeigen"},
		{Type: "link", Label: "Zur Buchungsseite", URL: e.bookingPageURL},
	}
}

func guestCountActions(lang string) []Action {
	word := "Personen"
	if englishLang(lang) {
		word = "guests"
	}
	actions := make([]Action, 0, 4)
	for n := 1; n <= 4; n++ {
		label := fmt.Sprintf("%d", n)
		msg := fmt.Sprintf("%d %s", n, word)
		if n == 1 {
			if englishLang(lang) {
				msg = "1 guest"
			} else {
				msg = "1 Person"
			}
		}
		actions = append(actions, Action{Type: "postback", Label: label, Message: msg})
	}
	return actions
}

func (e *Engine) askDatesReply(lang string) Reply {
	text := "Gerne! Für welchen Zeitraum darf ich nachsehen? Zum Beispiel: \"1.2.26 bis 5.2.26\" oder \"morgen, 3 Nächte\"."
	if englishLang(lang) {
		text = "Happy to help! Which dates should I check? For example: \"2026-02-01 to 2026-02-05\" or \"tomorrow, 3 nights\"."
	}
	return Reply{Text: text, Actions: e.categoryActions(lang), Source: SourceBooking}
}

func (e *Engine) askDepartureReply(lang, arrival string) Reply {
	text := fmt.Sprintf("Anreise am %s, notiert. Bis wann möchten Sie bleiben? Sie können auch einfach \"3 Nächte\" schreiben.", displayDate(arrival))
	if englishLang(lang) {
		text = fmt.Sprintf("Arrival on %s, noted. Until when would you like to stay? You can also just say \"3 nights\".", displayDate(arrival))
	}
	return Reply{Text: text, Actions: e.categoryActions(lang), Source: SourceBooking}
}

func (e *Engine) noAvailabilityReply(lang, arrival, departure string) Reply {
	text := fmt.Sprintf("Leider ist vom %s bis %s nichts frei. Möchten Sie einen anderen Zeitraum probieren?", displayDate(arrival), displayDate(departure))
	if englishLang(lang) {
		text = fmt.Sprintf("Unfortunately nothing is available from %s to %s. Would you like to try different dates?", displayDate(arrival), displayDate(departure))
	}
	return Reply{Text: text, Actions: e.categoryActions(lang), Source: SourceBooking}
}

func (e *Engine) apologyReply(lang string) Reply {
	text := "Entschuldigung, die Verfügbarkeitsabfrage ist gerade nicht erreichbar. Bitte versuchen Sie es in ein paar Minuten noch einmal."
	if englishLang(lang) {
		text = "Sorry, our availability lookup is not reachable right now. Please try again in a few minutes."
	}
	return Reply{Text: text, Actions: e.categoryActions(lang), Source: SourceBooking}
}

func stayHeader(lang, arrival, departure string, nights, guests int, defaulted bool) string {
	if englishLang(lang) {
		noun := "nights"
		if nights == 1 {
			noun = "night"
		}
		guestPart := fmt.Sprintf("%d guests", guests)
		if guests == 1 && defaulted {
			guestPart = "base price for 1 guest"
		} else if guests == 1 {
			guestPart = "1 guest"
		}
		return fmt.Sprintf("%s – %s (%d %s, %s)", displayDate(arrival), displayDate(departure), nights, noun, guestPart)
	}
	noun := "Nächte"
	if nights == 1 {
		noun = "Nacht"
	}
	guestPart := fmt.Sprintf("%d Personen", guests)
	if guests == 1 && defaulted {
		guestPart = "Basispreis für 1 Person"
	} else if guests == 1 {
		guestPart = "1 Person"
	}
	return fmt.Sprintf("%s – %s (%d %s, %s)", displayDate(arrival), displayDate(departure), nights, noun, guestPart)
}

func optionLine(idx int, opt session.StayOption, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", idx, opt.Name)
	if opt.AreaSqm > 0 {
		fmt.Fprintf(&b, " (%.0f m²", opt.AreaSqm)
		if opt.MaxGuests > 0 {
			fmt.Fprintf(&b, ", max. %d", opt.MaxGuests)
		}
		b.WriteString(")")
	} else if opt.MaxGuests > 0 {
		fmt.Fprintf(&b, " (max. %d)", opt.MaxGuests)
	}
	if opt.Priced() {
		fmt.Fprintf(&b, " – %s", formatPrice(opt.Price, opt.Currency))
	} else if englishLang(lang) {
		b.WriteString(" – price on request")
	} else {
		b.WriteString(" – Preis auf Anfrage")
	}
	return b.String()
}

func (e *Engine) listReply(lang string, d *session.Draft, shown []session.StayOption, hidden int, defaulted bool) Reply {
	nights := nightsBetween(d.Arrival, d.Departure)
	guests := d.Guests
	if guests == 0 {
		guests = 1
	}

	var b strings.Builder
	b.WriteString(stayHeader(lang, d.Arrival, d.Departure, nights, guests, defaulted))
	b.WriteString("\n")
	for i, opt := range shown {
		b.WriteString(optionLine(i+1, opt, lang))
		b.WriteString("\n")
	}
	if hidden > 0 {
		if englishLang(lang) {
			fmt.Fprintf(&b, "… and %d more. ", hidden)
		} else {
			fmt.Fprintf(&b, "… und %d weitere. ", hidden)
		}
	}
	if englishLang(lang) {
		b.WriteString("Reply with a number for details.")
	} else {
		b.WriteString("Antworten Sie mit einer Nummer für Details.")
	}

	actions := []Action{{Type: "link", Label: bookingLinkLabel(lang), URL: e.bookingURL(d)}}
	if defaulted {
		actions = append(guestCountActions(lang), actions...)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n"), Actions: actions, Source: SourceBooking}
}

func (e *Engine) focusedReply(lang string, d *session.Draft, opt session.StayOption, defaulted bool) Reply {
	nights := nightsBetween(d.Arrival, d.Departure)
	guests := d.Guests
	if guests == 0 {
		guests = 1
	}

	var b strings.Builder
	b.WriteString(opt.Name)
	b.WriteString("\n")
	b.WriteString(stayHeader(lang, d.Arrival, d.Departure, nights, guests, defaulted))
	b.WriteString("\n")
	if opt.Priced() {
		if englishLang(lang) {
			fmt.Fprintf(&b, "Total: %s", formatPrice(opt.Price, opt.Currency))
		} else {
			fmt.Fprintf(&b, "Gesamtpreis: %s", formatPrice(opt.Price, opt.Currency))
		}
	} else if englishLang(lang) {
		b.WriteString("Price on request.")
	} else {
		b.WriteString("Preis auf Anfrage.")
	}
	if defaulted {
		if englishLang(lang) {
			b.WriteString("\nHow many guests will be travelling?")
		} else {
			b.WriteString("\nFür wie viele Personen darf ich rechnen?")
		}
	}

	actions := []Action{{Type: "link", Label: bookingLinkLabel(lang), URL: e.offerBookingURL(d, opt)}}
	if opt.DetailsURL != "" {
		label := "Details"
		actions = append(actions, Action{Type: "link", Label: label, URL: opt.DetailsURL})
	}
	if defaulted {
		actions = append(guestCountActions(lang), actions...)
	}
	return Reply{Text: b.String(), Actions: actions, Source: SourceBooking}
}

func bookingLinkLabel(lang string) string {
	if englishLang(lang) {
		return "Book now"
	}
	return "Jetzt buchen"
}
