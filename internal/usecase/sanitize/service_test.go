package sanitize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain/event"
)

func raw(id, summary, desc, utcdate string) event.RawRecord {
	p := map[string]any{"summary": summary, "description": desc}
	if id != "" {
		p["id"] = id
	}
	if utcdate != "" {
		p["start"] = map[string]any{"utcdate": utcdate}
	}
	return event.RawRecord{"event": p}
}

func newTestService() *Service {
	return New(zap.NewNop())
}

func TestSanitize_DuplicateContentDifferentIDs(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("a", "Robotics Workshop", "Build robots.", "20250301T180000Z"),
		raw("b", "Robotics Workshop", "Build robots.", "20250301T180000Z"),
	}

	events, stats := svc.Sanitize(records)
	if stats.RemovedDuplicates != 1 {
		t.Errorf("RemovedDuplicates = %d, want 1", stats.RemovedDuplicates)
	}
	if stats.FinalCount != 1 || len(events) != 1 {
		t.Fatalf("FinalCount = %d (len %d), want 1", stats.FinalCount, len(events))
	}
	if events[0].ID != "a" {
		t.Errorf("first occurrence should win, got %q", events[0].ID)
	}
}

func TestSanitize_DuplicateContentMissingIDs(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("", "Jazz Night", "", "20250301T180000Z"),
		raw("", "Jazz Night", "", "20250301T180000Z"),
	}

	outcomes, stats := svc.SanitizeDetailed(records)
	if stats.RemovedDuplicates != 1 || stats.FinalCount != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if outcomes[1].Reason != DuplicateContent {
		t.Errorf("second record reason = %s, want %s", outcomes[1].Reason, DuplicateContent)
	}
}

func TestSanitize_BlankIDsAreNotDuplicatesOfEachOther(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("", "Jazz Night", "x", "20250301T180000Z"),
		raw("", "Poetry Slam", "y", "20250301T180000Z"),
	}

	_, stats := svc.Sanitize(records)
	if stats.FinalCount != 2 || stats.RemovedDuplicates != 0 {
		t.Errorf("stats = %+v, want 2 kept, 0 duplicates", stats)
	}
}

func TestSanitize_DuplicateID(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("same", "Talk A", "x", "20250301T180000Z"),
		raw("same", "Talk B", "y", "20250302T180000Z"),
	}

	outcomes, stats := svc.SanitizeDetailed(records)
	if outcomes[1].Reason != DuplicateID {
		t.Errorf("reason = %s, want %s", outcomes[1].Reason, DuplicateID)
	}
	if stats.RemovedDuplicates != 1 || stats.FinalCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSanitize_InvalidDateCheckedBeforeDedup(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("x", "Talk", "d", "not-a-date"),
		raw("x", "Talk", "d", "2025-03-01"),
		raw("x", "Talk", "d", "20250301T180000Z"),
	}

	outcomes, stats := svc.SanitizeDetailed(records)
	if stats.RemovedInvalidDates != 2 {
		t.Errorf("RemovedInvalidDates = %d, want 2", stats.RemovedInvalidDates)
	}
	if stats.RemovedDuplicates != 0 {
		t.Errorf("RemovedDuplicates = %d, want 0", stats.RemovedDuplicates)
	}
	if outcomes[2].Reason != Accepted {
		t.Errorf("third record should be accepted, got %s", outcomes[2].Reason)
	}
}

func TestSanitize_MalformedRecords(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		{},
		{"event": "string payload"},
		{"event": map[string]any{"start": "20250301T180000Z"}},
		{"event": map[string]any{"start": map[string]any{"utcdate": 20250301}}},
		nil,
	}

	events, stats := svc.Sanitize(records)
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if stats.TotalRaw != 5 || stats.RemovedInvalidDates != 5 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSanitize_NormalizesText(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("1", "  Robotics \n\t Workshop ", "Learn\n\nabout   robots.", "20250301T180000Z"),
		raw("2", "Clean", "   ", "20250302T180000Z"),
		raw("3", "Clean Too", "Fine.", "20250303T180000Z"),
	}

	outcomes, stats := svc.SanitizeDetailed(records)

	e := outcomes[0].Event
	if e.Title != "Robotics Workshop" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Description != "Learn about robots." {
		t.Errorf("Description = %q", e.Description)
	}
	if outcomes[1].Event.Description != DescriptionPlaceholder {
		t.Errorf("blank description = %q, want placeholder", outcomes[1].Event.Description)
	}
	if stats.FilledMissingDesc != 1 {
		t.Errorf("FilledMissingDesc = %d, want 1", stats.FilledMissingDesc)
	}
	if stats.NormalizedText != 2 {
		t.Errorf("NormalizedText = %d, want 2", stats.NormalizedText)
	}
	if !outcomes[1].Normalized || outcomes[2].Normalized {
		t.Errorf("Normalized flags = %v %v, want true false", outcomes[1].Normalized, outcomes[2].Normalized)
	}
}

func TestSanitize_FilledDescriptionCountsAsNormalized(t *testing.T) {
	svc := newTestService()
	rec := raw("1", "Talk", "", "20250301T180000Z")
	delete(rec["event"].(map[string]any), "description")

	_, stats := svc.Sanitize([]event.RawRecord{rec})
	if stats.FilledMissingDesc != 1 || stats.NormalizedText != 1 || stats.FinalCount != 1 {
		t.Errorf("stats = %+v, want filled 1, normalized 1, final 1", stats)
	}
}

func TestSanitize_ParsesStartAndTags(t *testing.T) {
	svc := newTestService()
	rec := raw("1", "Concert", "Music.", "20250301T180000Z")
	rec["event"].(map[string]any)["categories"] = map[string]any{
		"category": []any{
			map[string]any{"value": "Music"},
			map[string]any{"value": ""},
			"junk",
			map[string]any{"value": "Arts"},
		},
	}

	events, _ := svc.Sanitize([]event.RawRecord{rec})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	secs, ok := events[0].Start.Seconds()
	if !ok || secs != 1740852000 {
		t.Errorf("Start = %v (%v), want epoch 1740852000", secs, ok)
	}
	if !reflect.DeepEqual(events[0].Tags, []string{"Music", "Arts"}) {
		t.Errorf("Tags = %v", events[0].Tags)
	}
}

func TestSanitize_PreservesInputOrder(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("c", "C", "x", "20250303T000000Z"),
		raw("a", "A", "x", "20250301T000000Z"),
		raw("b", "B", "x", "20250302T000000Z"),
	}

	events, _ := svc.Sanitize(records)
	got := []string{events[0].ID, events[1].ID, events[2].ID}
	if !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("order = %v, want [c a b]", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	svc := newTestService()
	records := []event.RawRecord{
		raw("1", " Robotics   Workshop", "", "20250301T180000Z"),
		raw("2", "Robotics Workshop", "dup by content", "20250301T180000Z"),
		raw("", "History  Seminar", "Ancient\nhistory.", "20250305T120000Z"),
		raw("3", "Bad", "x", "bogus"),
		raw("1", "Other", "dup by id", "20250310T120000Z"),
		raw("4", "Poetry", "Verse.", "20250311T120000Z"),
	}

	first, _ := svc.Sanitize(records)

	again := make([]event.RawRecord, len(first))
	for i := range first {
		again[i] = first[i].Raw()
	}
	second, stats := svc.Sanitize(again)

	if stats.RemovedDuplicates != 0 || stats.RemovedInvalidDates != 0 {
		t.Errorf("second pass removed records: %+v", stats)
	}
	if stats.FilledMissingDesc != 0 || stats.NormalizedText != 0 {
		t.Errorf("second pass modified records: %+v", stats)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestSanitize_DedupInvariant(t *testing.T) {
	svc := newTestService()
	var records []event.RawRecord
	dates := []string{"20250301T180000Z", "20250302T180000Z"}
	for i := 0; i < 40; i++ {
		id := ""
		if i%3 != 0 {
			id = string(rune('a' + i%5))
		}
		records = append(records, raw(id, []string{"A", "B", "C"}[i%3], "d", dates[i%2]))
	}

	events, _ := svc.Sanitize(records)

	ids := map[string]bool{}
	sigs := map[string]bool{}
	for _, e := range events {
		if e.ID != "" {
			if ids[e.ID] {
				t.Errorf("duplicate id %q", e.ID)
			}
			ids[e.ID] = true
		}
		b, _ := json.Marshal(e.Start)
		key := e.Title + "|" + string(b)
		if sigs[key] {
			t.Errorf("duplicate title+start %q", key)
		}
		sigs[key] = true
	}
}

func TestSanitize_OutcomeCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_sanitize_records_total"}, []string{"outcome"})
	svc := newTestService().WithOutcomeCounter(counter)

	svc.Sanitize([]event.RawRecord{
		raw("1", "A", "x", "20250301T180000Z"),
		raw("1", "B", "x", "20250302T180000Z"),
		raw("2", "C", "x", ""),
	})

	if v := testutil.ToFloat64(counter.WithLabelValues(string(Accepted))); v != 1 {
		t.Errorf("accepted = %v, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues(string(DuplicateID))); v != 1 {
		t.Errorf("duplicate_id = %v, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues(string(InvalidDate))); v != 1 {
		t.Errorf("invalid_date = %v, want 1", v)
	}
}
