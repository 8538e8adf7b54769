// Package event holds the calendar event models: the raw record as delivered by
// the upstream calendar feed and the canonical event the ranking engine consumes.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UTCDateLayout is the upstream calendar date format (e.g. 20250301T180000Z).
const UTCDateLayout = "20060102T150405Z"

// Event is a validated, deduplicated, text-normalized calendar event.
// Treat it as immutable once produced.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       Timestamp `json:"start_timestamp"`
	Tags        []string  `json:"tags"`
}

// EmbeddingText is the text an event is vectorized from: title, description and tags.
func (e *Event) EmbeddingText() string {
	return e.Title + " " + e.Description + " " + strings.Join(e.Tags, " ")
}

// Raw re-encodes the event in the upstream record shape.
// Sanitizing the output of Raw yields the same event.
func (e *Event) Raw() RawRecord {
	payload := map[string]any{
		"id":          e.ID,
		"summary":     e.Title,
		"description": e.Description,
	}
	if t, err := e.Start.Time(); err == nil {
		payload["start"] = map[string]any{"utcdate": t.UTC().Format(UTCDateLayout)}
	}
	if len(e.Tags) > 0 {
		cats := make([]any, len(e.Tags))
		for i, tag := range e.Tags {
			cats[i] = map[string]any{"value": tag}
		}
		payload["categories"] = map[string]any{"category": cats}
	}
	return RawRecord{"event": payload}
}

// StartTime resolves the start timestamp.
func (e *Event) StartTime() (time.Time, error) {
	return e.Start.Time()
}

// UnmarshalJSON decodes an event whose id may be a string or a number.
// Numeric ids keep their JSON text, so 42 becomes "42".
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	*e = Event(aux.plain)
	e.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode event id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("event id must be a string or a number, got %s", raw)
	}
	return n.String(), nil
}
