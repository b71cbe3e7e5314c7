package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded"}`)
	secret := "whsec_test"
	now := time.Now()

	header := Sign(payload, secret, now.Unix())

	assert.True(t, strings.HasPrefix(header, "t="))
	assert.Contains(t, header, ",v1=")
	assert.True(t, Verify(payload, header, secret, now))
}

func TestVerify_TimestampTolerance(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	secret := "whsec_test"
	now := time.Now()

	tests := []struct {
		name  string
		ts    int64
		valid bool
	}{
		{"Fresh", now.Unix(), true},
		{"At tolerance edge", now.Add(-300 * time.Second).Unix(), true},
		{"Just past tolerance", now.Add(-301 * time.Second).Unix(), false},
		{"Far in the past", now.Add(-time.Hour).Unix(), false},
		{"Future beyond tolerance", now.Add(301 * time.Second).Unix(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := Sign(payload, secret, tt.ts)
			assert.Equal(t, tt.valid, Verify(payload, header, secret, now))
		})
	}
}

func TestVerify_FlippedHexCharacterFails(t *testing.T) {
	payload := []byte(`{"amount":1000}`)
	secret := "whsec_test"
	now := time.Now()

	header := Sign(payload, secret, now.Unix())

	// Flip the last hex character of the signature.
	last := header[len(header)-1]
	flip := byte('0')
	if last == '0' {
		flip = '1'
	}
	tampered := header[:len(header)-1] + string(flip)

	assert.False(t, Verify(payload, tampered, secret, now))
}

func TestVerify_WrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	header := Sign(payload, "secret-a", now.Unix())
	assert.False(t, Verify(payload, header, "secret-b", now))
}

func TestVerify_TamperedPayload(t *testing.T) {
	secret := "whsec_test"
	now := time.Now()

	header := Sign([]byte(`{"amount":1000}`), secret, now.Unix())
	assert.False(t, Verify([]byte(`{"amount":9000}`), header, secret, now))
}

func TestVerify_MalformedHeader(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	for _, header := range []string{"", "garbage", "t=abc,v1=def", "v1=deadbeef", "t=123"} {
		assert.False(t, Verify(payload, header, "whsec_test", now), "header %q must not verify", header)
	}
}

func TestSign_DeterministicForStoredInputs(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	ts := int64(1_700_000_000)

	assert.Equal(t, Sign(payload, "s", ts), Sign(payload, "s", ts))
}
