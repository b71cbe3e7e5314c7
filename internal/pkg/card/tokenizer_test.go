package card

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func futureYear() int {
	return time.Now().Year() + 2
}

func TestTokenize(t *testing.T) {
	token, err := Tokenize(Details{
		Number:   "4242 4242 4242 4242",
		ExpMonth: 12,
		ExpYear:  futureYear(),
		CVC:      "123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.True(t, strings.HasPrefix(token.Value, TokenPrefix))
	assert.Len(t, token.Value, len(TokenPrefix)+24)
	assert.Equal(t, BrandVisa, token.Brand)
	assert.Equal(t, "4242", token.Last4)
	assert.Equal(t, 12, token.ExpMonth)
	assert.Equal(t, futureYear(), token.ExpYear)
	assert.NotEmpty(t, token.Fingerprint)
	// The token never carries the card number in any form.
	assert.NotContains(t, token.Value, "4242424242424242")
}

func TestTokenize_FreshTokenPerCall(t *testing.T) {
	details := Details{Number: "4242424242424242", ExpMonth: 6, ExpYear: futureYear(), CVC: "123"}

	first, err := Tokenize(details)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Tokenize(details)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.NotEqual(t, first.Value, second.Value, "token values must be fresh per call")
	assert.Equal(t, first.Fingerprint, second.Fingerprint, "fingerprint must be stable for the same card")
}

func TestTokenize_ValidatorErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		details Details
		wantErr error
	}{
		{"Bad checksum", Details{Number: "4242424242424243", ExpMonth: 12, ExpYear: futureYear(), CVC: "123"}, ErrFailedChecksum},
		{"Bad format", Details{Number: "1234", ExpMonth: 12, ExpYear: futureYear(), CVC: "123"}, ErrInvalidFormat},
		{"Expired", Details{Number: "4242424242424242", ExpMonth: 1, ExpYear: 2020, CVC: "123"}, ErrCardExpired},
		{"Bad month", Details{Number: "4242424242424242", ExpMonth: 0, ExpYear: futureYear(), CVC: "123"}, ErrInvalidMonth},
		{"Bad cvc for amex", Details{Number: "378282246310005", ExpMonth: 12, ExpYear: futureYear(), CVC: "123"}, ErrInvalidCVC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.details)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFingerprint_IgnoresFormatting(t *testing.T) {
	assert.Equal(t, Fingerprint("4242424242424242"), Fingerprint("4242 4242 4242 4242"))
	assert.NotEqual(t, Fingerprint("4242424242424242"), Fingerprint("4111111111111111"))
}
