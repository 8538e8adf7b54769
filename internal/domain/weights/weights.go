// Package weights holds the linear combination weights of the composite score.
package weights

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/eventrank/internal/domain"
)

// Default weight values used when a request carries none.
const (
	DefaultSim     = 0.7
	DefaultLabel   = 0.1
	DefaultRecency = 0.2
)

// Weights scales the similarity, label-overlap and recency signals.
// Components are non-negative and need not sum to 1; no renormalization happens.
type Weights struct {
	Sim     float64 `json:"sim" yaml:"sim"`
	Label   float64 `json:"label" yaml:"label"`
	Recency float64 `json:"recency" yaml:"recency"`
}

// Default returns {sim: 0.7, label: 0.1, recency: 0.2}.
func Default() Weights {
	return Weights{Sim: DefaultSim, Label: DefaultLabel, Recency: DefaultRecency}
}

// Validate rejects negative and non-finite components.
func (w Weights) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"sim", w.Sim}, {"label", w.Label}, {"recency", w.Recency}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s must be finite", domain.ErrInvalidWeights, c.name)
		}
		if c.v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", domain.ErrInvalidWeights, c.name, c.v)
		}
	}
	return nil
}

// Partial is a weights override where omitted components fall back to a base.
type Partial struct {
	Sim     *float64 `json:"sim,omitempty"`
	Label   *float64 `json:"label,omitempty"`
	Recency *float64 `json:"recency,omitempty"`
}

// Over fills the components missing from p with those of base.
func (p *Partial) Over(base Weights) Weights {
	if p == nil {
		return base
	}
	out := base
	if p.Sim != nil {
		out.Sim = *p.Sim
	}
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.Recency != nil {
		out.Recency = *p.Recency
	}
	return out
}
