package card

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidFormat  = errors.New("card number must contain 13 to 19 digits")
	ErrFailedChecksum = errors.New("card number failed checksum")
	ErrInvalidMonth   = errors.New("expiry month must be between 1 and 12")
	ErrCardExpired    = errors.New("card is expired")
	ErrInvalidCVC     = errors.New("cvc has invalid length")
)

// brandPattern maps a BIN prefix set to a brand. Patterns are checked in
// order; the first match wins.
type brandPattern struct {
	brand    string
	prefixes []string
}

// BIN prefix tables. Amex before Visa so "34"/"37" are not shadowed, Discover
// 622126-622925 is approximated by its stable "6011"/"65"/"644"-"649" ranges.
var brandPatterns = []brandPattern{
	{brand: BrandAmex, prefixes: []string{"34", "37"}},
	{brand: BrandVisa, prefixes: []string{"4"}},
	{brand: BrandMastercard, prefixes: []string{"51", "52", "53", "54", "55", "2221", "2222", "2223", "2224", "2225", "2226", "2227", "2228", "2229", "223", "224", "225", "226", "227", "228", "229", "23", "24", "25", "26", "270", "271", "2720"}},
	{brand: BrandDiscover, prefixes: []string{"6011", "644", "645", "646", "647", "648", "649", "65"}},
}

const (
	BrandVisa       = "visa"
	BrandMastercard = "mastercard"
	BrandAmex       = "amex"
	BrandDiscover   = "discover"
	BrandUnknown    = "unknown"
)

// normalizeNumber strips spaces, dashes and any other non-digit characters.
func normalizeNumber(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateNumber checks format and Luhn checksum of a card number.
func ValidateNumber(raw string) error {
	number := normalizeNumber(raw)
	if len(number) < 13 || len(number) > 19 {
		return ErrInvalidFormat
	}
	if !luhnValid(number) {
		return ErrFailedChecksum
	}
	return nil
}

// luhnValid applies the standard alternating-doubling checksum from the
// rightmost digit. number must already be digits-only.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// DetectBrand returns the card brand for a number based on its BIN prefix.
// Unknown prefixes yield BrandUnknown.
func DetectBrand(raw string) string {
	number := normalizeNumber(raw)
	for _, p := range brandPatterns {
		for _, prefix := range p.prefixes {
			if strings.HasPrefix(number, prefix) {
				return p.brand
			}
		}
	}
	return BrandUnknown
}

// ValidateExpiry checks that (year, month) is not in the past. Two-digit
// years are normalized by adding 2000.
func ValidateExpiry(month, year int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < 100 {
		year += 2000
	}
	now := time.Now()
	if year < now.Year() {
		return ErrCardExpired
	}
	if year == now.Year() && month < int(now.Month()) {
		return ErrCardExpired
	}
	return nil
}

// NormalizeYear applies the same two-digit normalization ValidateExpiry uses.
func NormalizeYear(year int) int {
	if year < 100 {
		return year + 2000
	}
	return year
}

// ValidateCVC checks the security code length. Amex expects 4 digits, other
// known brands 3; an unknown brand accepts 3 or 4.
func ValidateCVC(code, brand string) error {
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidCVC
		}
	}
	switch brand {
	case BrandAmex:
		if len(code) != 4 {
			return ErrInvalidCVC
		}
	case BrandVisa, BrandMastercard, BrandDiscover:
		if len(code) != 3 {
			return ErrInvalidCVC
		}
	default:
		if len(code) != 3 && len(code) != 4 {
			return ErrInvalidCVC
		}
	}
	return nil
}
