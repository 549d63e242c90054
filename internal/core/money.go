// Package core holds the record and aggregate model shared by every
// component of the engine, together with money and period arithmetic.
//
// Extraction output is noisy: numeric fields arrive as JSON numbers,
// numeric strings, or garbage. Money parsing is therefore defensive and
// total: anything unparseable degrades to zero cents, never to an error
// escaping the aggregation path.
package core

import (
	"bytes"
	"strconv"
	"strings"
)

// Money is an amount in euro cents. Keeping cents as the unit makes the
// stats/export reconciliation exact integer arithmetic.
type Money struct {
	Cents int64
}

// ParseMoney parses a euro amount from extraction output. It accepts dot
// and comma decimal separators, an optional leading sign, and a trailing
// euro sign or surrounding whitespace. The third decimal digit rounds
// half up, away from zero. Malformed input yields zero.
//
// Parsing is digit-wise integer arithmetic rather than a float
// round-trip: amounts like "1.005" have no exact binary representation
// and would otherwise round the wrong way.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,34")  -> 1234 cents
//	ParseMoney("12.5 €") -> 1250 cents
//	ParseMoney("1.005")  -> 101 cents
//	ParseMoney("n/a")    -> 0 cents
func ParseMoney(s string) Money {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}
	}
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, found := strings.Cut(s, ".")
	if found && strings.Contains(fracPart, ".") {
		return Money{}
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return Money{}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || iv > ((1<<63-1)/100) {
		return Money{}
	}

	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add returns the sum of the two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// IsZero reports whether the amount is zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Euros returns the amount as a float64, display use only.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount with exactly two decimals, e.g. "1234.56".
func (m Money) Format() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// MarshalJSON emits the amount as a two-decimal JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Format()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
// Anything else parses to zero, matching the engine's malformed-field
// recovery rule.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		m.Cents = 0
		return nil
	}
	s := string(data)
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			m.Cents = 0
			return nil
		}
		s = unquoted
	}
	*m = ParseMoney(s)
	return nil
}
