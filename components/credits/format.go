package credits

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout is the display layout for dates.
const DateLayout = "2 Jan 2006"

var printer = message.NewPrinter(language.English)

// FormatCredits renders n with thousands separators, e.g. 12500 → "12,500".
func FormatCredits(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatDate renders t in loc using DateLayout.  The zero time renders as
// the empty string.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
