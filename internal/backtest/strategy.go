package backtest

import (
	"sort"
	"time"
)

// Aggregation is how per-ticker returns on one date combine into the
// portfolio return.
type Aggregation int

const (
	// AggregateMean averages the defined returns of the tickers observed on
	// a date (equal weighting).
	AggregateMean Aggregation = iota
	// AggregateSum adds returns that already carry their portfolio weight.
	AggregateSum
)

// Strategy names.
const (
	NameBinary     = "binary"
	NameConfidence = "confidence"
	NameCost       = "cost"
)

// StrategyReturn is the return attributable to holding, on Date, the
// position implied by the previous day's signal for Ticker.
type StrategyReturn struct {
	Date    time.Time
	Ticker  string
	Return  float64
	Defined bool // false when there is no previous-day signal
	Weight  float64
	Trade   bool // signal changed from the previous day
}

// Returns is the output of one strategy: a StrategyReturn for every
// SignalRow, partitioned like the input.
type Returns struct {
	Strategy    string
	Aggregation Aggregation
	Series      map[string][]StrategyReturn
	// Collapsed lists dates on which every eligible confidence was zero and
	// all weights were set to zero.
	Collapsed []time.Time
}

// Strategy turns signal series into per-row strategy returns.
type Strategy interface {
	Name() string
	Apply(s *Signals) *Returns
}

// BinaryHold holds one unit of a ticker on day t when the model predicted up
// on day t-1, and stays flat otherwise.
type BinaryHold struct{}

func (BinaryHold) Name() string { return NameBinary }

func (BinaryHold) Apply(s *Signals) *Returns {
	out := newReturns(NameBinary, AggregateMean, s)
	for _, ticker := range s.Tickers {
		rows := s.Series[ticker]
		res := out.Series[ticker]
		for i := 1; i < len(rows); i++ {
			prev := float64(rows[i-1].Prediction)
			res[i].Return = rows[i].DailyReturn * prev
			res[i].Weight = prev
			res[i].Defined = true
		}
	}
	return out
}

// ConfidenceWeighted allocates each date's capital across the tickers
// observed on it, proportionally to the previous day's P(up).
type ConfidenceWeighted struct{}

func (ConfidenceWeighted) Name() string { return NameConfidence }

func (ConfidenceWeighted) Apply(s *Signals) *Returns {
	out := newReturns(NameConfidence, AggregateSum, s)
	type ref struct {
		ticker string
		i      int
	}
	byDate := make(map[int64][]ref)
	for _, ticker := range s.Tickers {
		for i, r := range s.Series[ticker] {
			if i == 0 {
				continue
			}
			byDate[r.Date.Unix()] = append(byDate[r.Date.Unix()], ref{ticker, i})
		}
	}

	for _, date := range s.Dates() {
		refs := byDate[date.Unix()]
		if len(refs) == 0 {
			continue
		}
		var total float64
		for _, rf := range refs {
			total += s.Series[rf.ticker][rf.i-1].Confidence
		}
		if total == 0 {
			// Allocation collapse: nothing to normalize by, hold nothing.
			out.Collapsed = append(out.Collapsed, date)
			for _, rf := range refs {
				out.Series[rf.ticker][rf.i].Defined = true
			}
			continue
		}
		for _, rf := range refs {
			rows := s.Series[rf.ticker]
			w := rows[rf.i-1].Confidence / total
			res := &out.Series[rf.ticker][rf.i]
			res.Weight = w
			res.Return = rows[rf.i].DailyReturn * w
			res.Defined = true
		}
	}
	return out
}

// CostAdjusted is BinaryHold minus CostRate on every day the signal changes.
// The first row of a ticker has no previous signal and never counts as a
// trade.
type CostAdjusted struct {
	CostRate float64
}

func (CostAdjusted) Name() string { return NameCost }

func (c CostAdjusted) Apply(s *Signals) *Returns {
	out := BinaryHold{}.Apply(s)
	out.Strategy = NameCost
	for _, ticker := range s.Tickers {
		res := out.Series[ticker]
		for i := range res {
			if res[i].Trade {
				res[i].Return -= c.CostRate
			}
		}
	}
	return out
}

// newReturns allocates a zero StrategyReturn for every signal row and sets
// the trade flags, which are the same for every strategy.
func newReturns(name string, agg Aggregation, s *Signals) *Returns {
	out := &Returns{
		Strategy:    name,
		Aggregation: agg,
		Series:      make(map[string][]StrategyReturn, len(s.Tickers)),
	}
	for _, ticker := range s.Tickers {
		rows := s.Series[ticker]
		res := make([]StrategyReturn, len(rows))
		for i, r := range rows {
			res[i] = StrategyReturn{Date: r.Date, Ticker: ticker}
			if i > 0 {
				res[i].Trade = r.Prediction != rows[i-1].Prediction
			}
		}
		out.Series[ticker] = res
	}
	return out
}

// Registry holds the named strategies available to a backtest.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a Registry with the three built-in strategies.
func DefaultRegistry(costRate float64) *Registry {
	r := NewRegistry()
	r.Register(BinaryHold{})
	r.Register(ConfidenceWeighted{})
	r.Register(CostAdjusted{CostRate: costRate})
	return r
}

// Register adds a strategy, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns the registered strategy names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
