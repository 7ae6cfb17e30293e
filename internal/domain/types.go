// Package domain holds the core value types shared across marketlens:
// daily bars, news articles, sentiment scores and model predictions.
package domain

import "time"

// Market identifies the exchange group a symbol trades on.
type Market string

// MarketUS names the bar archive directory for US-listed tickers.
const MarketUS Market = "us"

// DateLayout is the calendar-date format used in files, configs and APIs.
const DateLayout = "2006-01-02"

// Bar is one daily OHLCV observation for a symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Article is a single news item about a symbol, from any source.
type Article struct {
	Symbol   string
	Time     time.Time
	Source   string
	Headline string
	Content  string
}

// SentimentLabel is the coarse polarity assigned to a headline.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// DailySentiment is the mean signed sentiment of a symbol's headlines on
// one calendar date.
type DailySentiment struct {
	Symbol   string
	Date     time.Time
	Score    float64
	Articles int
}

// Direction is the binary class predicted by the classifier.
type Direction int

const (
	DirectionDown Direction = 0
	DirectionUp   Direction = 1
)

// String returns "UP" or "DOWN".
func (d Direction) String() string {
	if d == DirectionUp {
		return "UP"
	}
	return "DOWN"
}

// Prediction is the model's point-in-time call for a ticker's latest row.
// Confidence is the probability of the predicted class.
type Prediction struct {
	Ticker     string
	Date       time.Time
	Close      float64
	Direction  Direction
	Confidence float64
	CreatedAt  time.Time
}

// Day truncates t to a timezone-naive calendar date (UTC midnight).
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
