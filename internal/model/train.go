package model

import (
	"fmt"
	"log/slog"
	"math"

	"marketlens/internal/dataset"
)

// TrainOptions controls gradient-descent fitting.
type TrainOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Log          *slog.Logger
}

// Train fits a logistic model on the labeled rows of ds using full-batch
// gradient descent. Inputs are standardized with the training mean and
// population standard deviation; constant features get scale 1. Fitting is
// deterministic: the same data and options give the same weights.
func Train(ds *dataset.Dataset, opts TrainOptions) (*Logistic, error) {
	var rows []dataset.Row
	for _, r := range ds.Rows {
		if r.Labeled {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no labeled rows to train on", dataset.ErrDataUnavailable)
	}
	if len(ds.Features) == 0 {
		return nil, fmt.Errorf("%w: dataset has no feature columns", dataset.ErrSchemaMismatch)
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 500
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	nf := len(ds.Features)
	n := float64(len(rows))
	m := &Logistic{
		Features:  append([]string(nil), ds.Features...),
		Means:     make([]float64, nf),
		Scales:    make([]float64, nf),
		Weights:   make([]float64, nf),
		Threshold: 0.5,
	}

	for _, r := range rows {
		for j, v := range r.Features {
			m.Means[j] += v
		}
	}
	for j := range m.Means {
		m.Means[j] /= n
	}
	for _, r := range rows {
		for j, v := range r.Features {
			d := v - m.Means[j]
			m.Scales[j] += d * d
		}
	}
	for j := range m.Scales {
		m.Scales[j] = math.Sqrt(m.Scales[j] / n)
		if m.Scales[j] == 0 {
			m.Scales[j] = 1
		}
	}

	// Standardize once.
	xs := make([][]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		x := make([]float64, nf)
		for j, v := range r.Features {
			x[j] = (v - m.Means[j]) / m.Scales[j]
		}
		xs[i] = x
		ys[i] = float64(r.Target)
	}

	grad := make([]float64, nf)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias, loss float64
		for i, x := range xs {
			z := m.Bias
			for j, w := range m.Weights {
				z += w * x[j]
			}
			p := sigmoid(z)
			diff := p - ys[i]
			for j := range grad {
				grad[j] += diff * x[j]
			}
			gradBias += diff
			loss -= ys[i]*math.Log(p+1e-12) + (1-ys[i])*math.Log(1-p+1e-12)
		}
		for j := range m.Weights {
			m.Weights[j] -= opts.LearningRate * (grad[j]/n + opts.L2*m.Weights[j])
		}
		m.Bias -= opts.LearningRate * gradBias / n

		if epoch%100 == 0 || epoch == opts.Epochs-1 {
			log.Debug("training", "epoch", epoch, "loss", loss/n)
		}
	}

	return m, nil
}

// Accuracy returns the share of labeled rows the model classifies correctly.
func Accuracy(m *Logistic, ds *dataset.Dataset) (float64, error) {
	a, err := Align(m, ds.Features)
	if err != nil {
		return 0, err
	}
	var correct, total int
	for _, r := range ds.Rows {
		if !r.Labeled {
			continue
		}
		label, _ := a.Score(r.Features)
		if label == r.Target {
			correct++
		}
		total++
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: no labeled rows to evaluate", dataset.ErrDataUnavailable)
	}
	return float64(correct) / float64(total), nil
}
