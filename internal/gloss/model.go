// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gloss

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed model.yaml
var defaultModel []byte

// Model holds the fitted scaling and linear classifier parameters.
type Model struct {
	Features  []string  `yaml:"features"`
	Mean      []float64 `yaml:"mean"`
	Scale     []float64 `yaml:"scale"`
	Coef      []float64 `yaml:"coef"`
	Intercept float64   `yaml:"intercept"`
}

// DefaultModel returns the embedded model.
func DefaultModel() *Model {
	m, err := ParseModel(bytes.NewReader(defaultModel))
	if err != nil {
		panic(fmt.Sprintf("embedded gloss model: %v", err))
	}
	return m
}

// LoadModel reads a model from a YAML file.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening gloss model: %w", err)
	}
	defer f.Close()
	return ParseModel(f)
}

// ParseModel decodes and validates a YAML model.
func ParseModel(r io.Reader) (*Model, error) {
	var m Model
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding gloss model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	n := len(FeatureNames)
	if len(m.Features) != n {
		return fmt.Errorf("gloss model: %d features, want %d", len(m.Features), n)
	}
	for i, name := range m.Features {
		if name != FeatureNames[i] {
			return fmt.Errorf("gloss model: feature %d is %q, want %q", i, name, FeatureNames[i])
		}
	}
	if len(m.Mean) != n || len(m.Scale) != n || len(m.Coef) != n {
		return fmt.Errorf("gloss model: mean, scale and coef must each have %d values", n)
	}
	for i, s := range m.Scale {
		if s == 0 {
			return fmt.Errorf("gloss model: zero scale for %s", m.Features[i])
		}
	}
	return nil
}

// Probability applies standard scaling and the logistic function to x.
func (m *Model) Probability(x []float64) float64 {
	z := m.Intercept
	for i, v := range x {
		z += m.Coef[i] * (v - m.Mean[i]) / m.Scale[i]
	}
	return 1 / (1 + math.Exp(-z))
}
