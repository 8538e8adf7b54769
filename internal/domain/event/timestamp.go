package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp signals a start timestamp that cannot be resolved to a time.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

type timestampKind uint8

const (
	kindUnset timestampKind = iota
	kindEpoch
	kindText
	kindInvalid
)

// isoLayouts are tried in order for text timestamps. Values without an
// offset are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp is an event start time carried either as epoch seconds or as
// ISO-8601 text. Ranking clients send both forms; the sanitizer emits epochs.
type Timestamp struct {
	kind  timestampKind
	epoch float64
	text  string
}

// Epoch creates a timestamp from seconds since the Unix epoch (UTC).
func Epoch(seconds float64) Timestamp {
	return Timestamp{kind: kindEpoch, epoch: seconds}
}

// FromTime creates an epoch timestamp from t.
func FromTime(t time.Time) Timestamp {
	return Epoch(float64(t.Unix()) + float64(t.Nanosecond())/1e9)
}

// Text creates a timestamp from an ISO-8601 string. Parsing is deferred to Time.
func Text(s string) Timestamp {
	return Timestamp{kind: kindText, text: s}
}

// IsZero reports whether no timestamp was provided.
func (t Timestamp) IsZero() bool { return t.kind == kindUnset }

// Seconds returns the epoch value when the timestamp is numeric.
func (t Timestamp) Seconds() (float64, bool) {
	return t.epoch, t.kind == kindEpoch
}

// Time resolves the timestamp. Numeric values resolve in UTC; text values
// keep the offset they were written with.
func (t Timestamp) Time() (time.Time, error) {
	switch t.kind {
	case kindEpoch:
		if math.IsNaN(t.epoch) || math.IsInf(t.epoch, 0) {
			return time.Time{}, fmt.Errorf("%w: non-finite epoch", ErrInvalidTimestamp)
		}
		sec, frac := math.Modf(t.epoch)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case kindText:
		return parseISO(t.text)
	case kindInvalid:
		return time.Time{}, fmt.Errorf("%w: unsupported value %s", ErrInvalidTimestamp, t.text)
	default:
		return time.Time{}, fmt.Errorf("%w: missing", ErrInvalidTimestamp)
	}
}

func parseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// MarshalJSON writes epochs as numbers and text as strings.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case kindEpoch:
		return []byte(strconv.FormatFloat(t.epoch, 'f', -1, 64)), nil
	case kindText:
		return json.Marshal(t.text) //nolint:wrapcheck // string marshal cannot fail
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a string or null. Any other JSON value is
// kept as an invalid timestamp so a single bad event does not fail decoding
// of the whole batch.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = Timestamp{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		*t = Text(s)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*t = Timestamp{kind: kindInvalid, text: string(data)}
			return nil
		}
		*t = Epoch(f)
	}
	return nil
}
