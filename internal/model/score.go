package model

import "marketlens/internal/dataset"

// Scored is a dataset row with the classifier's outputs attached.
type Scored struct {
	dataset.Row
	Prediction int
	Confidence float64 // P(up)
}

// Score runs m over every row of p and returns the scored series keyed by
// ticker, preserving each series' date order.
func Score(m *Logistic, p *dataset.Panel) (map[string][]Scored, error) {
	a, err := Align(m, p.Features)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Scored, len(p.Tickers))
	for _, ticker := range p.Tickers {
		rows := p.Series[ticker]
		scored := make([]Scored, len(rows))
		for i, r := range rows {
			label, prob := a.Score(r.Features)
			scored[i] = Scored{Row: r, Prediction: label, Confidence: prob}
		}
		out[ticker] = scored
	}
	return out, nil
}
