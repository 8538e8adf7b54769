package eventrank

import (
	"time"

	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/result"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
)

// Profile describes the student an event list is ranked for.
type Profile struct {
	Major     string
	Year      string
	Interests []string
}

// Event is a canonical calendar event.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	Tags        []string
}

// RawRecord is one record of the upstream calendar feed, shaped
// {"event": {"id", "summary", "description", "start": {"utcdate"}, "categories"}}.
type RawRecord map[string]any

// Weights scales the three signals of the composite score.
// Components must be non-negative; they are not renormalized.
type Weights struct {
	Sim     float64
	Label   float64
	Recency float64
}

// DefaultWeights returns {Sim: 0.7, Label: 0.1, Recency: 0.2}.
func DefaultWeights() Weights {
	return fromDomainWeights(weights.Default())
}

// Result is one ranked event. Score and Details are rounded to two decimals.
type Result struct {
	ID      string
	Score   float64
	Details Details
}

// Details are the individual signals behind a score.
type Details struct {
	Sim     float64
	Label   float64
	Recency float64
}

// SanitizeStats summarizes a Sanitize pass.
type SanitizeStats struct {
	TotalRaw            int
	RemovedDuplicates   int
	RemovedInvalidDates int
	FilledMissingDesc   int
	NormalizedText      int
	FinalCount          int
}

// --- Converters ---

func toDomainProfile(p Profile) profile.Profile {
	return profile.Profile{Major: p.Major, Year: p.Year, Interests: p.Interests}
}

func toDomainEvents(events []Event) []event.Event {
	out := make([]event.Event, len(events))
	for i, e := range events {
		out[i] = event.Event{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Start:       event.FromTime(e.Start),
			Tags:        e.Tags,
		}
	}
	return out
}

func fromDomainEvents(events []event.Event) []Event {
	out := make([]Event, 0, len(events))
	for i := range events {
		start, _ := events[i].StartTime() // sanitized events always carry a valid start
		out = append(out, Event{
			ID:          events[i].ID,
			Title:       events[i].Title,
			Description: events[i].Description,
			Start:       start,
			Tags:        events[i].Tags,
		})
	}
	return out
}

func toDomainRecords(records []RawRecord) []event.RawRecord {
	out := make([]event.RawRecord, len(records))
	for i, r := range records {
		out[i] = event.RawRecord(r)
	}
	return out
}

func toDomainWeights(w Weights) weights.Weights {
	return weights.Weights{Sim: w.Sim, Label: w.Label, Recency: w.Recency}
}

func fromDomainWeights(w weights.Weights) Weights {
	return Weights{Sim: w.Sim, Label: w.Label, Recency: w.Recency}
}

func fromDomainResults(results []result.Result) []Result {
	out := make([]Result, len(results))
	for i := range results {
		d := results[i].Details()
		out[i] = Result{
			ID:      results[i].ID(),
			Score:   results[i].Score(),
			Details: Details{Sim: d.Sim, Label: d.Label, Recency: d.Recency},
		}
	}
	return out
}

func fromDomainStats(s sanitize.Stats) SanitizeStats {
	return SanitizeStats{
		TotalRaw:            s.TotalRaw,
		RemovedDuplicates:   s.RemovedDuplicates,
		RemovedInvalidDates: s.RemovedInvalidDates,
		FilledMissingDesc:   s.FilledMissingDesc,
		NormalizedText:      s.NormalizedText,
		FinalCount:          s.FinalCount,
	}
}
