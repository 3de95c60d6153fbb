package dialog

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidName  = errors.New("invalid name")
)

// CanonicalPhone reduces spoken or formatted input to a canonical
// country-coded form. Exactly 10 digits get the default country code
// prepended; a number already carrying the country code gets a plus sign.
// Everything else is rejected. Idempotent on already-canonical input.
func CanonicalPhone(raw, countryCode string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == 10:
		return "+" + countryCode + digits, nil
	case len(digits) == 10+len(countryCode) && strings.HasPrefix(digits, countryCode):
		return "+" + digits, nil
	default:
		return "", ErrInvalidPhone
	}
}

// CanonicalName title-cases a spoken full name. At least two
// whitespace-separated tokens are required; a lone first name fails.
func CanonicalName(raw string) (string, error) {
	tokens := strings.Fields(raw)
	if len(tokens) < 2 {
		return "", ErrInvalidName
	}

	for i, token := range tokens {
		tokens[i] = titleToken(token)
	}
	return strings.Join(tokens, " "), nil
}

func titleToken(token string) string {
	runes := []rune(strings.ToLower(token))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// spaceDigits formats a canonical phone for voice readback, digit by digit.
func spaceDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
