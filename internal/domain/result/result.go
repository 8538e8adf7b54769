// Package result holds the ranked output of the scoring engine.
package result

import "strconv"

// Details are the individual signals behind a composite score.
type Details struct {
	Sim     float64 `json:"sim"`
	Label   float64 `json:"label"`
	Recency float64 `json:"recency"`
}

// Result is a single ranked event. All values are rounded to two decimals.
type Result struct {
	id      string
	score   float64
	details Details
}

// New creates a result, rounding score and details to two decimals.
func New(id string, score float64, d Details) Result {
	return Result{
		id:    id,
		score: Round2(score),
		details: Details{
			Sim:     Round2(d.Sim),
			Label:   Round2(d.Label),
			Recency: Round2(d.Recency),
		},
	}
}

// ID returns the event identifier.
func (r *Result) ID() string { return r.id }

// Score returns the rounded composite score.
func (r *Result) Score() float64 { return r.score }

// Details returns the rounded per-signal scores.
func (r *Result) Details() Details { return r.details }

// Round2 rounds to two decimal places, ties to even. Ties are decided on the
// exact binary value, so 0.125 rounds to 0.12 while 2.675 (stored just below
// the tie) rounds to 2.67.
func Round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
