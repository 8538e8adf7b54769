// Package profile describes the user a ranking is computed for.
package profile

import "strings"

// Profile is the user side of a ranking request.
type Profile struct {
	Major     string   `json:"major"`
	Year      string   `json:"year"`
	Interests []string `json:"interests"`
}

// InterestSet returns the distinct lower-cased interests in first-seen order.
// Interests are not trimmed: a blank interest is kept and matches any tag.
func (p *Profile) InterestSet() []string {
	seen := make(map[string]struct{}, len(p.Interests))
	out := make([]string, 0, len(p.Interests))
	for _, in := range p.Interests {
		key := strings.ToLower(in)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
