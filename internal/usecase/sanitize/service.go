// Package sanitize turns raw calendar feed records into the canonical,
// deduplicated event set the ranking engine operates on.
package sanitize

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain/event"
)

// DescriptionPlaceholder replaces empty or whitespace-only descriptions.
const DescriptionPlaceholder = "No description provided."

// Reason is the per-record outcome of a sanitization pass.
type Reason string

// Record outcomes.
const (
	Accepted         Reason = "accepted"
	InvalidDate      Reason = "invalid_date"
	DuplicateID      Reason = "duplicate_id"
	DuplicateContent Reason = "duplicate_content"
)

// Rejected reports whether the record was dropped.
func (r Reason) Rejected() bool { return r != Accepted }

// Outcome describes what happened to one raw record.
// Event is populated only when Reason is Accepted.
type Outcome struct {
	Index      int
	Reason     Reason
	Event      event.Event
	FilledDesc bool
	Normalized bool
}

// Stats summarizes a sanitization pass.
type Stats struct {
	TotalRaw            int `json:"total_raw"`
	RemovedDuplicates   int `json:"removed_duplicates"`
	RemovedInvalidDates int `json:"removed_invalid_dates"`
	FilledMissingDesc   int `json:"filled_missing_desc"`
	NormalizedText      int `json:"normalized_text"`
	FinalCount          int `json:"final_count"`
}

type signature struct {
	title string
	start int64
}

// Service validates, deduplicates and normalizes raw event records.
// It holds no per-pass state and is safe for concurrent use.
type Service struct {
	logger   *zap.Logger
	outcomes *prometheus.CounterVec
}

// New creates a sanitizer.
func New(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// WithOutcomeCounter counts records by outcome on a counter vec with label "outcome".
func (s *Service) WithOutcomeCounter(c *prometheus.CounterVec) *Service {
	s.outcomes = c
	return s
}

// Sanitize returns accepted events in first-seen input order plus pass statistics.
// Malformed records are rejected and counted; they never abort the batch.
func (s *Service) Sanitize(records []event.RawRecord) ([]event.Event, Stats) {
	outcomes, stats := s.SanitizeDetailed(records)

	events := make([]event.Event, 0, stats.FinalCount)
	for i := range outcomes {
		if outcomes[i].Reason == Accepted {
			events = append(events, outcomes[i].Event)
		}
	}
	return events, stats
}

// SanitizeDetailed returns one Outcome per input record, in input order.
func (s *Service) SanitizeDetailed(records []event.RawRecord) ([]Outcome, Stats) {
	stats := Stats{TotalRaw: len(records)}
	seenIDs := make(map[string]struct{}, len(records))
	seenSigs := make(map[signature]struct{}, len(records))
	outcomes := make([]Outcome, 0, len(records))

	for i, rec := range records {
		o := sanitizeOne(rec.Payload(), seenIDs, seenSigs)
		o.Index = i

		switch o.Reason {
		case InvalidDate:
			stats.RemovedInvalidDates++
		case DuplicateID, DuplicateContent:
			stats.RemovedDuplicates++
		case Accepted:
			stats.FinalCount++
			if o.FilledDesc {
				stats.FilledMissingDesc++
			}
			if o.Normalized {
				stats.NormalizedText++
			}
		}
		s.count(o.Reason)
		outcomes = append(outcomes, o)
	}

	s.logger.Debug("Sanitized event batch",
		zap.Int("total_raw", stats.TotalRaw),
		zap.Int("removed_duplicates", stats.RemovedDuplicates),
		zap.Int("removed_invalid_dates", stats.RemovedInvalidDates),
		zap.Int("filled_missing_desc", stats.FilledMissingDesc),
		zap.Int("normalized_text", stats.NormalizedText),
		zap.Int("final_count", stats.FinalCount),
	)

	return outcomes, stats
}

// sanitizeOne checks the date first; only date-valid records enter dedup bookkeeping.
func sanitizeOne(p event.Payload, seenIDs map[string]struct{}, seenSigs map[signature]struct{}) Outcome {
	start, ok := parseStart(p)
	if !ok {
		return Outcome{Reason: InvalidDate}
	}

	rawTitle := p.Summary()
	title := collapseWhitespace(rawTitle)
	id := p.ID()
	sig := signature{title: title, start: start.Unix()}

	if id != "" {
		if _, dup := seenIDs[id]; dup {
			return Outcome{Reason: DuplicateID}
		}
	}
	if _, dup := seenSigs[sig]; dup {
		return Outcome{Reason: DuplicateContent}
	}
	if id != "" {
		seenIDs[id] = struct{}{}
	}
	seenSigs[sig] = struct{}{}

	rawDesc := p.Description()
	desc := collapseWhitespace(rawDesc)
	filled := desc == ""
	if filled {
		desc = DescriptionPlaceholder
	}

	tags := p.Categories()
	if tags == nil {
		tags = []string{}
	}

	return Outcome{
		Reason: Accepted,
		Event: event.Event{
			ID:          id,
			Title:       title,
			Description: desc,
			Start:       event.FromTime(start),
			Tags:        tags,
		},
		FilledDesc: filled,
		Normalized: title != rawTitle || desc != rawDesc,
	}
}

func parseStart(p event.Payload) (time.Time, bool) {
	raw, ok := p.UTCDate()
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(event.UTCDateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (s *Service) count(r Reason) {
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(string(r)).Inc()
	}
}
