package card

import (
	"testing"
	"time"
)

func TestValidateNumber_ValidLuhn(t *testing.T) {
	valid := []string{
		"4242424242424242",
		"4111111111111111",
		"378282246310005",
		"371449635398431",
		"5555555555554444",
		"6011111111111117",
		"4242 4242 4242 4242",
		"4242-4242-4242-4242",
	}
	for _, number := range valid {
		if err := ValidateNumber(number); err != nil {
			t.Fatalf("ValidateNumber(%q) = %v, want nil", number, err)
		}
	}
}

func TestValidateNumber_FlippedLastDigitFails(t *testing.T) {
	for _, number := range []string{"4242424242424242", "378282246310005"} {
		last := number[len(number)-1] - '0'
		flipped := number[:len(number)-1] + string('0'+(last+1)%10)
		if err := ValidateNumber(flipped); err != ErrFailedChecksum {
			t.Fatalf("ValidateNumber(%q) = %v, want ErrFailedChecksum", flipped, err)
		}
	}
}

func TestValidateNumber_Format(t *testing.T) {
	tests := []struct {
		name   string
		number string
	}{
		{"Too short", "424242424242"},
		{"Too long", "42424242424242424242"},
		{"Empty", ""},
		{"Letters only", "not-a-card"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateNumber(tt.number); err != ErrInvalidFormat {
				t.Fatalf("ValidateNumber(%q) = %v, want ErrInvalidFormat", tt.number, err)
			}
		})
	}
}

func TestDetectBrand(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"4242424242424242", BrandVisa},
		{"4111111111111111", BrandVisa},
		{"5555555555554444", BrandMastercard},
		{"2221000000000009", BrandMastercard},
		{"378282246310005", BrandAmex},
		{"341111111111111", BrandAmex},
		{"6011111111111117", BrandDiscover},
		{"6511111111111119", BrandDiscover},
		{"9999999999999999", BrandUnknown},
		{"1234567890123", BrandUnknown},
	}
	for _, tt := range tests {
		if got := DetectBrand(tt.number); got != tt.want {
			t.Fatalf("DetectBrand(%q) = %q, want %q", tt.number, got, tt.want)
		}
		// Pure function: repeated calls agree.
		if got := DetectBrand(tt.number); got != tt.want {
			t.Fatalf("DetectBrand(%q) second call = %q, want %q", tt.number, got, tt.want)
		}
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now()

	if err := ValidateExpiry(int(now.Month()), now.Year()); err != nil {
		t.Fatalf("current month/year should be valid, got %v", err)
	}
	if err := ValidateExpiry(int(now.Month()), now.Year()+1); err != nil {
		t.Fatalf("future year should be valid, got %v", err)
	}
	if err := ValidateExpiry(1, now.Year()-1); err != ErrCardExpired {
		t.Fatalf("past year should be expired, got %v", err)
	}
	if err := ValidateExpiry(0, now.Year()); err != ErrInvalidMonth {
		t.Fatalf("month 0 should be invalid, got %v", err)
	}
	if err := ValidateExpiry(13, now.Year()); err != ErrInvalidMonth {
		t.Fatalf("month 13 should be invalid, got %v", err)
	}
	// Two-digit years are normalized by adding 2000.
	if err := ValidateExpiry(12, (now.Year()+1)%100); err != nil {
		t.Fatalf("two-digit future year should be valid, got %v", err)
	}
}

func TestValidateExpiry_PastMonthSameYear(t *testing.T) {
	now := time.Now()
	if now.Month() == time.January {
		t.Skip("no earlier month in January")
	}
	if err := ValidateExpiry(int(now.Month())-1, now.Year()); err != ErrCardExpired {
		t.Fatalf("previous month this year should be expired, got %v", err)
	}
}

func TestValidateCVC(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		brand string
		valid bool
	}{
		{"Visa 3 digits", "123", BrandVisa, true},
		{"Visa 4 digits", "1234", BrandVisa, false},
		{"Amex 4 digits", "1234", BrandAmex, true},
		{"Amex 3 digits", "123", BrandAmex, false},
		{"Unknown 3 digits", "123", BrandUnknown, true},
		{"Unknown 4 digits", "1234", BrandUnknown, true},
		{"Unknown 5 digits", "12345", BrandUnknown, false},
		{"Non-digit", "12a", BrandVisa, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCVC(tt.code, tt.brand)
			if tt.valid && err != nil {
				t.Fatalf("ValidateCVC(%q, %q) = %v, want nil", tt.code, tt.brand, err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("ValidateCVC(%q, %q) = nil, want error", tt.code, tt.brand)
			}
		})
	}
}
