package reconcile

import (
	"strings"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/shopspring/decimal"
)

// SanityBound is the largest magnitude accepted for an amount or a balance
var SanityBound = decimal.New(1, 12)

const (
	// boundDigits is the integer digit count of SanityBound
	boundDigits = 13
	// maxScale is the most fractional digits an amount may carry
	maxScale = 20
	// maxRawLength caps the feed literal handed to the decimal parser
	maxRawLength = 64
)

// Sane reports whether v is within the sanity bound. The exponent is checked
// first; comparing decimals rescales both sides to a common exponent, which
// is unbounded work for literals like 1e900000000.
func Sane(v decimal.Decimal) bool {
	exp := int64(v.Exponent())
	if exp < -maxScale || exp > boundDigits {
		return false
	}
	if int64(v.NumDigits())+exp > boundDigits {
		return false
	}
	return v.Abs().LessThanOrEqual(SanityBound)
}

// ParseAmount parses a decimal amount from the feed. Non-finite literals,
// unparseable or oversized text, more than maxScale fractional digits and
// values beyond SanityBound yield a ValidationError.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if len(s) > maxRawLength {
		return decimal.Zero, &apperr.ValidationError{Field: field, Value: raw[:maxRawLength] + "..."}
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "", "nan", "inf", "infinity":
		return decimal.Zero, &apperr.ValidationError{Field: field, Value: raw}
	}

	v, err := decimal.NewFromString(s)
	if err != nil || !Sane(v) {
		return decimal.Zero, &apperr.ValidationError{Field: field, Value: raw}
	}
	return v, nil
}

// NullAmount is ParseAmount folded into a NullDecimal, invalid when rejected
func NullAmount(field, raw string) decimal.NullDecimal {
	v, err := ParseAmount(field, raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}
