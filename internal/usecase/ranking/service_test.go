package ranking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/domain"
	"github.com/kailas-cloud/eventrank/internal/domain/event"
	"github.com/kailas-cloud/eventrank/internal/domain/profile"
	"github.com/kailas-cloud/eventrank/internal/domain/weights"
	"github.com/kailas-cloud/eventrank/internal/repository/embcache"
	"github.com/kailas-cloud/eventrank/internal/usecase/sanitize"
	"github.com/kailas-cloud/eventrank/internal/usecase/scoring"
)

// --- Mocks ---

// mockEmbedder returns vectors from a text → vector table, [0, 1] for unknown text.
type mockEmbedder struct {
	vectors    map[string][]float32
	err        error
	embedTexts []string
	batches    [][]string
}

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{0, 1}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.embedTexts = append(m.embedTexts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector(text), TotalTokens: 4}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 10 * len(texts)}, nil
}

type mockMajors map[string]string

func (m mockMajors) Context(major string) (string, bool) {
	v, ok := m[strings.ToLower(major)]
	return v, ok
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, emb *mockEmbedder) *Service {
	t.Helper()
	cache, err := embcache.New(100, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("embcache.New: %v", err)
	}
	engine := scoring.New(zap.NewNop(), scoring.WithClock(func() time.Time { return fixedNow }))
	return New(emb, emb, cache, engine, sanitize.New(zap.NewNop()), zap.NewNop())
}

func ev(id, title string, tags ...string) event.Event {
	return event.Event{ID: id, Title: title, Description: "d", Start: event.FromTime(fixedNow), Tags: tags}
}

func ptr(v float64) *float64 { return &v }

// --- Tests ---

func TestRank_EmptyEventsShortCircuits(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, emb)

	got, err := svc.Rank(context.Background(), profile.Profile{Major: "CS"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
	if len(emb.embedTexts) != 0 || len(emb.batches) != 0 {
		t.Errorf("embedder must not be called for empty events")
	}
}

func TestRank_OrdersBySimilarity(t *testing.T) {
	a, b := ev("A", "Robotics"), ev("B", "Poetry")
	emb := &mockEmbedder{vectors: map[string][]float32{
		"CS":              {1, 0},
		a.EmbeddingText(): {1, 0},
		b.EmbeddingText(): {0, 1},
	}}
	svc := newTestService(t, emb)

	got, err := svc.Rank(context.Background(), profile.Profile{Major: "CS"}, []event.Event{b, a},
		&weights.Partial{Sim: ptr(1), Label: ptr(0), Recency: ptr(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID() != "A" || got[0].Details().Sim != 1 {
		t.Errorf("first = %s sim %.2f, want A 1.00", got[0].ID(), got[0].Details().Sim)
	}
	if got[1].ID() != "B" || got[1].Details().Sim != 0 {
		t.Errorf("second = %s sim %.2f, want B 0.00", got[1].ID(), got[1].Details().Sim)
	}
	if len(emb.batches) != 1 || len(emb.batches[0]) != 2 {
		t.Errorf("expected one batch of 2 texts, got %v", emb.batches)
	}
}

func TestRank_CachesVectorsAcrossRequests(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, emb)
	events := []event.Event{ev("1", "A"), ev("2", "B")}
	p := profile.Profile{Major: "History"}

	for i := 0; i < 2; i++ {
		if _, err := svc.Rank(context.Background(), p, events, nil); err != nil {
			t.Fatalf("rank %d: %v", i, err)
		}
	}
	if len(emb.embedTexts) != 1 {
		t.Errorf("query embedded %d times, want 1", len(emb.embedTexts))
	}
	if len(emb.batches) != 1 {
		t.Errorf("event batches = %d, want 1", len(emb.batches))
	}

	// only the new event is computed
	events = append(events, ev("3", "C"))
	if _, err := svc.Rank(context.Background(), p, events, nil); err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(emb.batches) != 2 || len(emb.batches[1]) != 1 {
		t.Errorf("expected second batch with 1 text, got %v", emb.batches)
	}
}

func TestRank_AnonymousEventsKeyedByText(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, emb)
	events := []event.Event{ev("", "Jazz"), ev("", "Chess"), ev("", "Jazz")}

	got, err := svc.Rank(context.Background(), profile.Profile{}, events, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if len(emb.batches) != 1 || len(emb.batches[0]) != 2 {
		t.Errorf("expected one batch with 2 distinct texts, got %v", emb.batches)
	}
}

func TestQueryText(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{}).
		WithMajors(mockMajors{"computer science": "Algorithms and systems."})

	tests := []struct {
		name string
		p    profile.Profile
		want string
	}{
		{"full", profile.Profile{Major: " Computer Science ", Year: "Junior", Interests: []string{"ai", "tech"}},
			"Computer Science Algorithms and systems. Junior ai tech"},
		{"unknown major", profile.Profile{Major: "Art", Year: "Senior"}, "Art  Senior"},
		{"interests only", profile.Profile{Interests: []string{"music"}}, "music"},
		{"empty", profile.Profile{}, DefaultFallbackQuery},
		{"blank", profile.Profile{Major: "  ", Year: " "}, DefaultFallbackQuery},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.QueryText(tc.p); got != tc.want {
				t.Errorf("QueryText = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRank_FallbackQueryEmbedded(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, emb).WithFallbackQuery("campus events")

	if _, err := svc.Rank(context.Background(), profile.Profile{}, []event.Event{ev("1", "A")}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.embedTexts) != 1 || emb.embedTexts[0] != "campus events" {
		t.Errorf("embedded query = %v, want [campus events]", emb.embedTexts)
	}
}

func TestRank_EmbeddingFailure(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("connection reset")}
	svc := newTestService(t, emb)

	_, err := svc.Rank(context.Background(), profile.Profile{Major: "CS"}, []event.Event{ev("1", "A")}, nil)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestRank_RateLimitPreserved(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrRateLimited}
	svc := newTestService(t, emb)

	_, err := svc.Rank(context.Background(), profile.Profile{}, []event.Event{ev("1", "A")}, nil)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Error("rate limit should not be reclassified as provider error")
	}
}

func TestRank_InvalidWeights(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, emb)

	_, err := svc.Rank(context.Background(), profile.Profile{}, []event.Event{ev("1", "A")},
		&weights.Partial{Sim: ptr(-1)})
	if !errors.Is(err, domain.ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
	if len(emb.embedTexts) != 0 {
		t.Error("embedder must not be called with invalid weights")
	}
}

func TestRank_PartialWeightsUseDefaults(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{}).
		WithDefaultWeights(weights.Weights{Sim: 0, Label: 0, Recency: 1})

	// sim overridden to 0 explicitly, recency default 1, event starts now.
	got, err := svc.Rank(context.Background(), profile.Profile{}, []event.Event{ev("1", "A")},
		&weights.Partial{Sim: ptr(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Score() != 1 {
		t.Errorf("score = %v, want 1", got[0].Score())
	}
}

func TestRank_Prefilter(t *testing.T) {
	events := []event.Event{ev("far", "far"), ev("near2", "near2"), ev("mid", "mid"), ev("near1", "near1")}
	emb := &mockEmbedder{vectors: map[string][]float32{
		"general":                 {1, 0},
		events[0].EmbeddingText(): {0, 1},
		events[1].EmbeddingText(): {0.9, 0.44},
		events[2].EmbeddingText(): {0.5, 0.87},
		events[3].EmbeddingText(): {1, 0},
	}}
	svc := newTestService(t, emb).WithPrefilter(2, 3)

	got, err := svc.Rank(context.Background(), profile.Profile{}, events, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results after pre-filter, got %d", len(got))
	}
	ids := map[string]bool{got[0].ID(): true, got[1].ID(): true}
	if !ids["near1"] || !ids["near2"] {
		t.Errorf("kept = %v, want near1 and near2", ids)
	}
}

func TestRank_PrefilterBelowThreshold(t *testing.T) {
	events := []event.Event{ev("1", "a"), ev("2", "b"), ev("3", "c")}
	svc := newTestService(t, &mockEmbedder{}).WithPrefilter(1, 10)

	got, err := svc.Rank(context.Background(), profile.Profile{}, events, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("pre-filter should be skipped below min events, got %d results", len(got))
	}
}

func TestRank_RecordsUsage(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, emb)
	events := []event.Event{ev("1", "A"), ev("2", "B")}

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Rank(ctx, profile.Profile{}, events, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokens, computed, hits := usage.Snapshot()
	if tokens != 24 || computed != 3 || hits != 0 {
		t.Errorf("usage = (%d, %d, %d), want (24, 3, 0)", tokens, computed, hits)
	}

	ctx, usage = domain.NewContextWithUsage(context.Background())
	if _, err := svc.Rank(ctx, profile.Profile{}, events, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokens, computed, hits = usage.Snapshot()
	if tokens != 0 || computed != 0 || hits != 3 {
		t.Errorf("usage = (%d, %d, %d), want (0, 0, 3)", tokens, computed, hits)
	}
}

func TestSanitizeThenRank(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{})
	records := []event.RawRecord{
		{"event": map[string]any{"id": "1", "summary": "Jazz", "start": map[string]any{"utcdate": "20250301T180000Z"}}},
		{"event": map[string]any{"id": "2", "summary": "Jazz", "start": map[string]any{"utcdate": "20250301T180000Z"}}},
		{"event": map[string]any{"id": "3", "summary": "Chess", "start": map[string]any{"utcdate": "bad"}}},
	}

	events, stats := svc.Sanitize(records)
	if stats.FinalCount != 1 || len(events) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	got, err := svc.Rank(context.Background(), profile.Profile{}, events, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "1" {
		t.Errorf("unexpected ranking: %v", got)
	}
}

func TestEventKey(t *testing.T) {
	withID := ev("42", "x")
	anon := ev("", "x")
	if EventKey(&withID) != "event:42" {
		t.Errorf("EventKey = %q", EventKey(&withID))
	}
	if EventKey(&anon) != "event-text:"+anon.EmbeddingText() {
		t.Errorf("EventKey = %q", EventKey(&anon))
	}
}
