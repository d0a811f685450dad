package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope layout this package writes. Decode rejects
// anything newer.
const SchemaVersion = 2

// Aggregate names the entity an event is about. Version is the row version
// the event was produced from; consumers drop an event whose version is
// below one they already applied.
type Aggregate struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Version int64  `json:"version,omitempty"`
}

// Envelope is the JSON document carried as every message value.
type Envelope struct {
	ID            string            `json:"event_id"`
	Type          string            `json:"event_type"`
	Schema        int               `json:"schema_version"`
	Aggregate     Aggregate         `json:"aggregate"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ErrUnsupportedSchema is returned by Decode for envelopes written by a
// newer producer.
var ErrUnsupportedSchema = errors.New("unsupported envelope schema")

// NewEnvelope wraps payload for agg with a fresh event id.
func NewEnvelope(eventType, source string, agg Aggregate, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Schema:     SchemaVersion,
		Aggregate:  agg,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    raw,
	}, nil
}

// Annotate sets a metadata entry. Empty values are skipped.
func (e *Envelope) Annotate(key, value string) {
	if value == "" {
		return
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata[key] = value
}

// Encode returns the wire form of e.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a message value written by Encode.
func Decode(value []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Schema > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, e.Schema)
	}
	return &e, nil
}

// DecodePayload unmarshals the payload into dst.
func (e *Envelope) DecodePayload(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
