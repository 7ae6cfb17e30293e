// Package model holds the binary up/down classifier: a standardized
// logistic regression persisted as JSON.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"marketlens/internal/dataset"
)

// Classifier is a trained binary classifier over a fixed feature vector.
type Classifier interface {
	// Predict returns the predicted class, 0 (down) or 1 (up).
	Predict(x []float64) int
	// PredictProba returns the probability of class 1.
	PredictProba(x []float64) float64
}

// Compile-time interface check.
var _ Classifier = (*Logistic)(nil)

// Logistic is a logistic-regression classifier over standardized inputs.
type Logistic struct {
	Features  []string  `json:"features"`
	Means     []float64 `json:"means"`
	Scales    []float64 `json:"scales"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// PredictProba returns P(up | x). x must follow m.Features order.
func (m *Logistic) PredictProba(x []float64) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		z += w * (x[i] - m.Means[i]) / m.Scales[i]
	}
	return sigmoid(z)
}

// Predict returns 1 when P(up) exceeds the threshold, 0 otherwise.
func (m *Logistic) Predict(x []float64) int {
	if m.PredictProba(x) > m.Threshold {
		return 1
	}
	return 0
}

func (m *Logistic) validate() error {
	n := len(m.Features)
	if n == 0 {
		return fmt.Errorf("model has no features")
	}
	if len(m.Means) != n || len(m.Scales) != n || len(m.Weights) != n {
		return fmt.Errorf("model vectors disagree: %d features, %d means, %d scales, %d weights",
			n, len(m.Means), len(m.Scales), len(m.Weights))
	}
	for i, s := range m.Scales {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("feature %s has invalid scale %v", m.Features[i], s)
		}
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return fmt.Errorf("threshold %v outside (0, 1)", m.Threshold)
	}
	return nil
}

// Load reads a model saved by Save.
func Load(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Logistic
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the model as indented JSON, creating parent directories.
func (m *Logistic) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Aligned adapts a classifier to a dataset whose feature columns may be in a
// different order or carry extra columns.
type Aligned struct {
	clf     Classifier
	columns []int // model feature i lives at dataset column columns[i]
	buf     []float64
}

// Align maps the model's features onto the dataset's feature columns. A model
// feature missing from the dataset is a schema mismatch.
func Align(m *Logistic, datasetFeatures []string) (*Aligned, error) {
	pos := make(map[string]int, len(datasetFeatures))
	for i, f := range datasetFeatures {
		pos[f] = i
	}
	cols := make([]int, len(m.Features))
	for i, f := range m.Features {
		j, ok := pos[f]
		if !ok {
			return nil, fmt.Errorf("%w: model feature %q not in dataset", dataset.ErrSchemaMismatch, f)
		}
		cols[i] = j
	}
	return &Aligned{clf: m, columns: cols, buf: make([]float64, len(cols))}, nil
}

// Score returns the predicted class and P(up) for a dataset feature row.
// Aligned reuses an internal buffer and is not safe for concurrent use.
func (a *Aligned) Score(row []float64) (int, float64) {
	for i, c := range a.columns {
		a.buf[i] = row[c]
	}
	return a.clf.Predict(a.buf), a.clf.PredictProba(a.buf)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
