// Package sentiment scores news headlines with a finance lexicon and
// aggregates them into daily per-ticker sentiment.
package sentiment

import (
	"sort"
	"strings"
	"unicode"

	"marketlens/internal/domain"
)

var positiveWords = []string{
	"beat", "beats", "boost", "boosts", "bullish", "buy", "climb", "climbs", "expand", "expands",
	"gain", "gains", "growth", "high", "higher", "improve", "improves", "jump", "jumps",
	"outperform", "outperforms", "profit", "profitable", "raise", "raises", "rally", "rallies",
	"record", "rebound", "rise", "rises", "soar", "soars", "strong", "stronger", "surge", "surges",
	"top", "tops", "upgrade", "upgraded", "upgrades", "win", "wins",
}

var negativeWords = []string{
	"bearish", "cut", "cuts", "decline", "declines", "default", "downgrade", "downgraded",
	"downgrades", "drop", "drops", "fall", "falls", "fraud", "investigation", "lawsuit", "layoff",
	"layoffs", "loss", "losses", "low", "lower", "miss", "misses", "plunge", "plunges", "probe",
	"recall", "sell", "selloff", "slump", "slumps", "tumble", "tumbles", "warn", "warning",
	"weak", "weaker",
}

var negators = map[string]bool{
	"no": true, "not": true, "never": true, "without": true, "fails": true, "failed": true,
}

// Result is the label and confidence assigned to one text.
type Result struct {
	Label domain.SentimentLabel
	Score float64 // confidence in Label, in [0, 1]
}

// Signed maps the result onto [-1, 1]: positive → +Score, negative → -Score,
// neutral → 0.
func (r Result) Signed() float64 {
	switch r.Label {
	case domain.SentimentPositive:
		return r.Score
	case domain.SentimentNegative:
		return -r.Score
	}
	return 0
}

// Scorer is a lexicon-based headline classifier. The zero value is not
// usable; call NewScorer.
type Scorer struct {
	positive map[string]bool
	negative map[string]bool
}

// NewScorer returns a Scorer with the built-in finance lexicon.
func NewScorer() *Scorer {
	s := &Scorer{
		positive: make(map[string]bool, len(positiveWords)),
		negative: make(map[string]bool, len(negativeWords)),
	}
	for _, w := range positiveWords {
		s.positive[w] = true
	}
	for _, w := range negativeWords {
		s.negative[w] = true
	}
	return s
}

// Score classifies text. A lexicon hit preceded by a negator counts for the
// opposite polarity. The score is the share of hits agreeing with the label;
// text with no hits, or as many positive as negative hits, is neutral with
// score 1.
func (s *Scorer) Score(text string) Result {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var pos, neg int
	for i, tok := range tokens {
		isPos, isNeg := s.positive[tok], s.negative[tok]
		if !isPos && !isNeg {
			continue
		}
		if i > 0 && negators[tokens[i-1]] {
			isPos, isNeg = isNeg, isPos
		}
		if isPos {
			pos++
		} else {
			neg++
		}
	}

	total := pos + neg
	switch {
	case pos > neg:
		return Result{Label: domain.SentimentPositive, Score: float64(pos) / float64(total)}
	case neg > pos:
		return Result{Label: domain.SentimentNegative, Score: float64(neg) / float64(total)}
	}
	return Result{Label: domain.SentimentNeutral, Score: 1}
}

// Daily scores every article's headline and averages the signed scores per
// symbol and calendar date. Articles with an empty headline are skipped.
// The result is ordered by symbol, then date.
func Daily(s *Scorer, articles []domain.Article) []domain.DailySentiment {
	type key struct {
		symbol string
		day    int64
	}
	sums := make(map[key]*domain.DailySentiment)
	for _, a := range articles {
		if strings.TrimSpace(a.Headline) == "" {
			continue
		}
		day := domain.Day(a.Time)
		k := key{a.Symbol, day.Unix()}
		d, ok := sums[k]
		if !ok {
			d = &domain.DailySentiment{Symbol: a.Symbol, Date: day}
			sums[k] = d
		}
		d.Score += s.Score(a.Headline).Signed()
		d.Articles++
	}

	out := make([]domain.DailySentiment, 0, len(sums))
	for _, d := range sums {
		d.Score /= float64(d.Articles)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
