// Package currency converts minor-unit amounts to and from their display
// form. It is kept outside the pricing engine and handed to callers as plain
// functions.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	xcurrency "golang.org/x/text/currency"
)

var (
	// ErrUnknownCurrency is returned for codes that are not ISO 4217.
	ErrUnknownCurrency = errors.New("unknown currency code")
	// ErrInvalidAmount is returned when a display string cannot be parsed.
	ErrInvalidAmount = errors.New("invalid amount")
)

var half = decimal.RequireFromString("0.5")

// Currency describes one ISO 4217 currency for display purposes.
type Currency struct {
	Code   string
	Symbol string
	// Scale is the number of minor-unit digits; zero for zero-decimal
	// currencies such as JPY.
	Scale int
}

// Lookup resolves an ISO 4217 code, case-insensitively.
func Lookup(code string) (Currency, error) {
	unit, err := xcurrency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	scale, _ := xcurrency.Standard.Rounding(unit)
	return Currency{
		Code:   unit.String(),
		Symbol: fmt.Sprint(xcurrency.NarrowSymbol(unit)),
		Scale:  scale,
	}, nil
}

// IsZeroDecimal reports whether the currency has no minor unit. Unknown
// codes are treated as two-decimal currencies.
func IsZeroDecimal(code string) bool {
	c, err := Lookup(code)
	return err == nil && c.Scale == 0
}

// Format renders a minor-unit amount as "$1,234.56".
func (c Currency) Format(amount int64) string {
	d := decimal.NewFromInt(amount).Shift(int32(-c.Scale))
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	digits := d.StringFixed(int32(c.Scale))
	whole, frac, _ := strings.Cut(digits, ".")
	out := sign + c.Symbol + group(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// Unformat parses a display string back into minor units. Symbols, codes,
// whitespace and thousands separators are ignored; extra fraction digits are
// rounded half up.
func (c Currency) Unformat(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, c.Code)
	cleaned = strings.ReplaceAll(cleaned, c.Symbol, "")
	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '\u00a0':
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	minor := d.Shift(int32(c.Scale))
	if minor.IsNegative() {
		return -minor.Neg().Add(half).Floor().IntPart(), nil
	}
	return minor.Add(half).Floor().IntPart(), nil
}

// Format is a convenience for Lookup(code) followed by Currency.Format.
func Format(amount int64, code string) (string, error) {
	c, err := Lookup(code)
	if err != nil {
		return "", err
	}
	return c.Format(amount), nil
}

// Unformat is a convenience for Lookup(code) followed by Currency.Unformat.
func Unformat(s, code string) (int64, error) {
	c, err := Lookup(code)
	if err != nil {
		return 0, err
	}
	return c.Unformat(s)
}

func group(whole string) string {
	if len(whole) <= 3 {
		return whole
	}
	var b strings.Builder
	head := len(whole) % 3
	if head > 0 {
		b.WriteString(whole[:head])
	}
	for i := head; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}
