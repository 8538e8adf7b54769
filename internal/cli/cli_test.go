package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/eventrank/internal/domain/event"
)

const rawFeed = `{"events": [
	{"event": {"id": "1", "summary": "Machine learning  hackathon", "description": "build software",
		"start": {"utcdate": "%s"}, "categories": {"category": [{"value": "Tech"}]}}},
	{"event": {"id": "2", "summary": "Dorm party", "description": "",
		"start": {"utcdate": "%s"}, "categories": {"category": [{"value": "Social"}]}}},
	{"event": {"id": "1", "summary": "Duplicate id", "start": {"utcdate": "%s"}}},
	{"event": {"id": "4", "summary": "No date"}}
]}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func feed(t *testing.T) string {
	t.Helper()
	now := time.Now().Add(time.Hour).UTC().Format(event.UTCDateLayout)
	return writeTemp(t, "feed.json", strings.ReplaceAll(rawFeed, "%s", now))
}

func configFile(t *testing.T) string {
	t.Helper()
	return writeTemp(t, "config.yaml", "embedding:\n  provider: hashing\n  dimensions: 128\n")
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"sanitize", "rank", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag not registered")
	}
}

func TestSanitizeCmd(t *testing.T) {
	stdout, stderr, err := execute(t, "--config", configFile(t), "sanitize", "--in", feed(t))
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	var events []event.Event
	if err := json.Unmarshal([]byte(stdout), &events); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Title != "Machine learning hackathon" {
		t.Errorf("title not normalized: %q", events[0].Title)
	}
	for _, want := range []string{"removed duplicates:    1", "removed invalid dates: 1", "final count:           2"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestSanitizeCmd_OutFileAndBareArray(t *testing.T) {
	in := writeTemp(t, "bare.json", `[{"event": {"id": "x", "summary": "T", "start": {"utcdate": "20250301T180000Z"}}}]`)
	out := filepath.Join(t.TempDir(), "clean.json")

	stdout, _, err := execute(t, "--config", configFile(t), "sanitize", "--in", in, "--out", out)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty with --out, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].ID != "x" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestSanitizeCmd_MissingIn(t *testing.T) {
	if _, _, err := execute(t, "sanitize"); err == nil {
		t.Fatal("expected error without --in")
	}
}

func TestRankCmd_RawFeed(t *testing.T) {
	stdout, _, err := execute(t, "--config", configFile(t),
		"rank", "--events", feed(t), "--raw", "--major", "Computer Science", "--interest", "tech")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	var ranked []rankedEvent
	if err := json.Unmarshal([]byte(stdout), &ranked); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked events, got %d", len(ranked))
	}
	if ranked[0].ID != "1" {
		t.Errorf("expected the tech event first, got %+v", ranked)
	}
	if ranked[0].Details.Label != 1 {
		t.Errorf("label = %v, want 1", ranked[0].Details.Label)
	}
	if ranked[0].Score < ranked[1].Score {
		t.Errorf("results not sorted: %+v", ranked)
	}
}

func TestRankCmd_ProfileWeightsAndTop(t *testing.T) {
	start := time.Now().Add(time.Hour).Unix()
	events := writeTemp(t, "events.json", `[
		{"id": "a", "title": "A", "description": "d", "start_timestamp": `+itoa(start)+`, "tags": []},
		{"id": "b", "title": "B", "description": "d", "start_timestamp": `+itoa(start)+`, "tags": []}
	]`)
	profilePath := writeTemp(t, "profile.json", `{"major": "History", "year": "Junior", "interests": []}`)
	weightsPath := writeTemp(t, "weights.json", `{"sim": 0, "label": 0, "recency": 1}`)

	stdout, _, err := execute(t, "--config", configFile(t), "rank",
		"--events", events, "--profile", profilePath, "--weights", weightsPath, "--top", "1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	var ranked []rankedEvent
	if err := json.Unmarshal([]byte(stdout), &ranked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected --top 1 to keep one event, got %d", len(ranked))
	}
	if ranked[0].Score != 1 {
		t.Errorf("recency-only score = %v, want 1", ranked[0].Score)
	}
}

func TestRankCmd_RequiresProfile(t *testing.T) {
	events := writeTemp(t, "events.json", `[]`)
	if _, _, err := execute(t, "--config", configFile(t), "rank", "--events", events); err == nil {
		t.Fatal("expected error without a profile")
	}
}

func TestRankCmd_NegativeWeights(t *testing.T) {
	events := writeTemp(t, "events.json", `[{"id": "a", "title": "A", "start_timestamp": 0}]`)
	weightsPath := writeTemp(t, "weights.json", `{"sim": -1}`)

	_, _, err := execute(t, "--config", configFile(t), "rank",
		"--events", events, "--major", "x", "--weights", weightsPath)
	if err == nil || !strings.Contains(err.Error(), "invalid weights") {
		t.Fatalf("expected invalid weights error, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "Version:") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestUnwrapEvents(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare array", ` [1, 2]`, `[1, 2]`, false},
		{"envelope", `{"events": [3]}`, `[3]`, false},
		{"envelope without events", `{}`, `[]`, false},
		{"empty", `  `, ``, true},
		{"garbage", `{`, ``, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := unwrapEvents([]byte(tc.in))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
