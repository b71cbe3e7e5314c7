package webhook

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventIDPrefix tags webhook event identifiers on the wire.
const EventIDPrefix = "evt_"

// Envelope is the wire shape POSTed to endpoints:
// {id, type, created, data: {object: ...}}.
type Envelope struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Created int64       `json:"created"`
	Data    EnvelopeData `json:"data"`
}

// EnvelopeData wraps the event payload.
type EnvelopeData struct {
	Object json.RawMessage `json:"object"`
}

// NewEventID returns a fresh public event identifier.
func NewEventID() string {
	return EventIDPrefix + uuid.New().String()
}

// BuildEnvelope assembles the canonical wire payload. The same stored inputs
// always produce the same bytes, so retries resend an identical body.
func BuildEnvelope(publicID, eventType string, created time.Time, object json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{
		ID:      publicID,
		Type:    eventType,
		Created: created.Unix(),
		Data:    EnvelopeData{Object: object},
	})
}
