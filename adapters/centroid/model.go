// Package centroid provides a small reference classifier behind the
// ports.Model capability: nearest class centroid in feature space with a
// softmax over distances. It exists for local evaluation and tests; a
// production deployment plugs a trained ensemble into the same port.
package centroid

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"microlens/domain/classify"
	"microlens/ports"
)

// Model holds one centroid (and per-feature scale) per class, laid out in
// the canonical label order. Immutable after construction, safe for
// concurrent Predict calls.
type Model struct {
	Dim       int                  `json:"dim"`
	Centroids map[string][]float64 `json:"centroids"`
	Scales    map[string][]float64 `json:"scales"`
}

// Train builds centroids from labeled feature vectors. Every class must
// have at least one example; every vector must share the same length.
func Train(examples map[classify.Label][][]float64) (*Model, error) {
	dim := -1
	centroids := make(map[string][]float64, len(classify.Labels()))
	scales := make(map[string][]float64, len(classify.Labels()))

	for _, label := range classify.Labels() {
		vecs := examples[label]
		if len(vecs) == 0 {
			return nil, fmt.Errorf("no training examples for class %s", label)
		}
		for _, v := range vecs {
			if dim == -1 {
				dim = len(v)
			}
			if len(v) != dim {
				return nil, fmt.Errorf("inconsistent feature dimension: %d vs %d", len(v), dim)
			}
		}

		mean := make([]float64, dim)
		for _, v := range vecs {
			for i, x := range v {
				mean[i] += x
			}
		}
		for i := range mean {
			mean[i] /= float64(len(vecs))
		}

		scale := make([]float64, dim)
		for _, v := range vecs {
			for i, x := range v {
				d := x - mean[i]
				scale[i] += d * d
			}
		}
		for i := range scale {
			scale[i] = math.Sqrt(scale[i] / float64(len(vecs)))
			if scale[i] < 1e-9 {
				scale[i] = 1e-9
			}
		}

		centroids[label.String()] = mean
		scales[label.String()] = scale
	}

	return &Model{Dim: dim, Centroids: centroids, Scales: scales}, nil
}

// Classes returns the canonical label order.
func (m *Model) Classes() []string {
	labels := classify.Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.String()
	}
	return out
}

// Predict scores a feature vector against every centroid and softmaxes the
// negative scaled distances into a probability distribution.
func (m *Model) Predict(features []float64) (ports.Prediction, error) {
	if len(features) != m.Dim {
		return ports.Prediction{}, fmt.Errorf("expected %d features, got %d", m.Dim, len(features))
	}

	labels := m.Classes()
	scores := make([]float64, len(labels))
	for i, label := range labels {
		c, ok := m.Centroids[label]
		if !ok {
			return ports.Prediction{}, fmt.Errorf("model has no centroid for class %s", label)
		}
		s := m.Scales[label]
		d := 0.0
		for j := range features {
			z := (features[j] - c[j]) / s[j]
			d += z * z
		}
		scores[i] = -math.Sqrt(d / float64(m.Dim))
	}

	probs := softmax(scores)
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return ports.Prediction{Label: labels[best], Probabilities: probs}, nil
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	sum := 0.0
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Save writes the model as JSON.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a model saved with Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Dim <= 0 || len(m.Centroids) == 0 {
		return nil, fmt.Errorf("model file %s is empty or malformed", path)
	}
	for label, c := range m.Centroids {
		if len(c) != m.Dim {
			return nil, fmt.Errorf("model file %s: centroid for class %s has %d features, want %d", path, label, len(c), m.Dim)
		}
		s, ok := m.Scales[label]
		if !ok {
			return nil, fmt.Errorf("model file %s: missing scales for class %s", path, label)
		}
		if len(s) != m.Dim {
			return nil, fmt.Errorf("model file %s: scales for class %s have %d features, want %d", path, label, len(s), m.Dim)
		}
	}
	return &m, nil
}
