package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the webhook signature on outbound requests.
const SignatureHeader = "X-Signature"

// SignatureTolerance is the maximum accepted age of a signed timestamp.
const SignatureTolerance = 300 * time.Second

// ComputeSignature returns the hex HMAC-SHA256 over "{timestamp}.{payload}".
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign produces the header value "t=<timestamp>,v1=<signature>".
func Sign(payload []byte, secret string, timestamp int64) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, ComputeSignature(timestamp, payload, secret))
}

// Verify checks a signature header against the payload. It rejects
// timestamps outside the tolerance window and compares signatures in
// constant time. Consumers of our webhooks run exactly this check.
func Verify(payload []byte, header, secret string, now time.Time) bool {
	timestamp, signature, err := parseSignatureHeader(header)
	if err != nil {
		return false
	}

	age := now.Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(SignatureTolerance/time.Second) {
		return false
	}

	expected := ComputeSignature(timestamp, payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var timestamp int64
	var signature string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			signature = kv[1]
		}
	}

	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("signature header is missing t or v1")
	}
	return timestamp, signature, nil
}
