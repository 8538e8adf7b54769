// Package majors loads the academic-major descriptions used to enrich ranking queries.
package majors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type program struct {
	Major       string `json:"major"`
	Description string `json:"description"`
}

type category struct {
	Programs []program `json:"programs"`
}

// Table maps a lower-cased major name to its description. Read-only after load.
type Table struct {
	byMajor map[string]string
}

// Empty returns a table with no majors.
func Empty() *Table {
	return &Table{byMajor: map[string]string{}}
}

// FromMap builds a table from major → description pairs.
func FromMap(m map[string]string) *Table {
	t := Empty()
	for major, desc := range m {
		if name := strings.ToLower(strings.TrimSpace(major)); name != "" {
			t.byMajor[name] = desc
		}
	}
	return t
}

// Load reads a majors file shaped {"<category>": {"programs": [{"major", "description"}]}}.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open majors file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse decodes a majors document from r. Later duplicates of a major win.
func Parse(r io.Reader) (*Table, error) {
	var doc map[string]category
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode majors: %w", err)
	}

	t := Empty()
	for _, c := range doc {
		for _, p := range c.Programs {
			name := strings.ToLower(strings.TrimSpace(p.Major))
			if name == "" {
				continue
			}
			t.byMajor[name] = p.Description
		}
	}
	return t, nil
}

// Context returns the description for major, matched case-insensitively.
func (t *Table) Context(major string) (string, bool) {
	if t == nil {
		return "", false
	}
	desc, ok := t.byMajor[strings.ToLower(strings.TrimSpace(major))]
	return desc, ok
}

// Len returns the number of known majors.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byMajor)
}
