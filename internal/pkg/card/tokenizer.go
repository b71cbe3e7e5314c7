package card

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenPrefix tags card tokens so they cannot be confused with other opaque
// identifiers in the system.
const TokenPrefix = "tok_"

// Details is the raw card input. It exists only in memory during
// tokenization; nothing here is ever persisted or logged.
type Details struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// Token is the safe output of tokenization. It carries no recoverable card
// data; the fingerprint is a one-way digest used as the fraud history key.
type Token struct {
	Value       string
	Brand       string
	Last4       string
	ExpMonth    int
	ExpYear     int
	Fingerprint string
}

// Tokenize validates the card fields and converts them into an opaque token
// plus safe metadata. Any validator error aborts tokenization.
func Tokenize(details Details) (*Token, error) {
	if err := ValidateNumber(details.Number); err != nil {
		return nil, err
	}
	brand := DetectBrand(details.Number)
	if err := ValidateExpiry(details.ExpMonth, details.ExpYear); err != nil {
		return nil, err
	}
	if err := ValidateCVC(details.CVC, brand); err != nil {
		return nil, err
	}

	number := normalizeNumber(details.Number)

	value, err := generateTokenValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &Token{
		Value:       value,
		Brand:       brand,
		Last4:       number[len(number)-4:],
		ExpMonth:    details.ExpMonth,
		ExpYear:     NormalizeYear(details.ExpYear),
		Fingerprint: Fingerprint(number),
	}, nil
}

// Fingerprint returns the stable one-way digest of a normalized card number.
func Fingerprint(number string) string {
	sum := sha256.Sum256([]byte(normalizeNumber(number)))
	return hex.EncodeToString(sum[:])
}

func generateTokenValue() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return TokenPrefix + hex.EncodeToString(buf), nil
}
