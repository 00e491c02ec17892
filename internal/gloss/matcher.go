// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gloss decides whether a free-text gloss given in a template refers
// to the same sense as a recorded definition. It is a small feature-based
// linear classifier with static parameters.
package gloss

import (
	"github.com/pdiddy/etymgraph/pkg/types"
)

// Matcher scores gloss pairs. It is safe for concurrent use.
type Matcher struct {
	model *Model
	cfg   types.GlossConfig
}

// New returns a matcher for model. A nil model selects the embedded default;
// zero thresholds select the defaults.
func New(model *Model, cfg types.GlossConfig) *Matcher {
	if model == nil {
		model = DefaultModel()
	}
	def := types.DefaultPipelineConfig().Gloss
	if cfg.MinProbability <= 0 {
		cfg.MinProbability = def.MinProbability
	}
	if cfg.MinMargin <= 0 {
		cfg.MinMargin = def.MinMargin
	}
	return &Matcher{model: model, cfg: cfg}
}

// Score returns the probability that candidate and reference describe the
// same sense.
func (m *Matcher) Score(candidate, reference string) float64 {
	return m.model.Probability(Featurize(candidate, reference))
}

// Match reports whether Score reaches the configured minimum probability.
func (m *Matcher) Match(candidate, reference string) bool {
	return m.Score(candidate, reference) >= m.cfg.MinProbability
}

// Option is one sense competing for a gloss.
type Option struct {
	ID      types.NodeID
	Glosses []string
}

// Select picks the option whose best definition matches gloss. It returns
// false when no option clears the minimum probability or when the runner-up
// is within the minimum margin.
func (m *Matcher) Select(gloss string, options []Option) (types.NodeID, bool) {
	if gloss == "" || len(options) == 0 {
		return types.NodeID{}, false
	}
	best, second := -1.0, -1.0
	var bestID types.NodeID
	for _, opt := range options {
		p := 0.0
		for _, def := range opt.Glosses {
			p = max(p, m.Score(gloss, def))
		}
		switch {
		case p > best:
			second = best
			best, bestID = p, opt.ID
		case p > second:
			second = p
		}
	}
	if best < m.cfg.MinProbability {
		return types.NodeID{}, false
	}
	if second >= 0 && best-second < m.cfg.MinMargin {
		return types.NodeID{}, false
	}
	return bestID, true
}
