package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrInvalidAmount is returned when a display string cannot be parsed into minor units.
var ErrInvalidAmount = errors.New("money: invalid amount")

var pow10 = [...]uint64{1, 10, 100, 1000, 10000}

// Format renders minor units as a localised display string, e.g. 12174 USD en → "$121.74".
func Format(minor int64, cur Currency, tag language.Tag) string {
	scale := cur.Scale
	if scale < 0 || scale >= len(pow10) {
		scale = 2
	}

	neg := minor < 0
	abs := uint64(minor)
	if neg {
		abs = uint64(-(minor + 1)) + 1
	}
	div := pow10[scale]
	major := abs / div
	frac := abs % div

	p := message.NewPrinter(tag)
	body := p.Sprintf("%d", major)
	if scale > 0 {
		body += decimalSeparator(p) + fmt.Sprintf("%0*d", scale, frac)
	}

	var out string
	if cur.Position == SymbolAfter {
		out = body + " " + cur.Symbol
	} else {
		out = cur.Symbol + body
	}
	if neg {
		return "-" + out
	}
	return out
}

// FormatQuantity renders a quantity with trailing zeros trimmed, grouped per locale.
func FormatQuantity(q decimal.Decimal, tag language.Tag) string {
	if q.IsInteger() {
		return message.NewPrinter(tag).Sprintf("%d", q.IntPart())
	}
	p := message.NewPrinter(tag)
	parts := strings.SplitN(q.String(), ".", 2)
	head := parts[0]
	neg := strings.HasPrefix(head, "-")
	head = strings.TrimPrefix(head, "-")
	whole, err := decimal.NewFromString(head)
	if err != nil {
		return q.String()
	}
	out := p.Sprintf("%d", whole.IntPart()) + decimalSeparator(p) + parts[1]
	if neg {
		return "-" + out
	}
	return out
}

// ParseAmount converts a display string such as "$1,250.50" or "1250.5" into minor units.
// Grouping commas, spaces, and the currency symbol or code are ignored. More fractional
// digits than the currency's scale is an error rather than a silent rounding.
func ParseAmount(text string, cur Currency) (int64, error) {
	cleaned := strings.TrimSpace(text)
	if cur.Symbol != "" {
		cleaned = strings.ReplaceAll(cleaned, cur.Symbol, "")
	}
	cleaned = strings.ReplaceAll(cleaned, cur.Code, "")
	cleaned = strings.NewReplacer(",", "", " ", "", "_", "", " ", "").Replace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	shifted := value.Shift(int32(cur.Scale))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, text, cur.Scale)
	}
	if shifted.GreaterThan(maxMinor) || shifted.LessThan(minMinor) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, text)
	}
	return shifted.IntPart(), nil
}

func decimalSeparator(p *message.Printer) string {
	sample := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	sep := strings.TrimSuffix(strings.TrimPrefix(sample, "1"), "5")
	if sep == "" {
		return "."
	}
	return sep
}
