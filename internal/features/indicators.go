package features

import "math"

// Indicator column names, in output order.
const (
	ColRSI        = "RSI_14"
	ColMACD       = "MACD_12_26_9"
	ColMACDHist   = "MACDh_12_26_9"
	ColMACDSignal = "MACDs_12_26_9"
	ColBBLower    = "BBL_20_2.0"
	ColBBMid      = "BBM_20_2.0"
	ColBBUpper    = "BBU_20_2.0"
	ColBBWidth    = "BBB_20_2.0"
	ColBBPercent  = "BBP_20_2.0"
)

// IndicatorColumns lists the technical indicator columns in the order they
// appear in a Row's Indicators slice.
var IndicatorColumns = []string{
	ColRSI,
	ColMACD, ColMACDHist, ColMACDSignal,
	ColBBLower, ColBBMid, ColBBUpper, ColBBWidth, ColBBPercent,
}

const (
	rsiLength  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bbLength   = 20
	bbStdDev   = 2.0
)

// computeIndicators returns one slice per IndicatorColumns entry, aligned
// with closes. Positions inside an indicator's warm-up window are NaN.
func computeIndicators(closes []float64) [][]float64 {
	macd, hist, signal := macdSeries(closes, macdFast, macdSlow, macdSignal)
	lower, mid, upper, width, pct := bollinger(closes, bbLength, bbStdDev)
	return [][]float64{
		rsi(closes, rsiLength),
		macd, hist, signal,
		lower, mid, upper, width, pct,
	}
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rsi is the relative strength index with Wilder smoothing, seeded with the
// simple average of the first n changes.
func rsi(closes []float64, n int) []float64 {
	out := nans(len(closes))
	if len(closes) <= n {
		return out
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(n)
	loss /= float64(n)
	out[n] = rsiValue(gain, loss)

	for i := n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		gain = (gain*float64(n-1) + g) / float64(n)
		loss = (loss*float64(n-1) + l) / float64(n)
		out[i] = rsiValue(gain, loss)
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	switch {
	case gain == 0 && loss == 0:
		return math.NaN()
	case loss == 0:
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// ema is the exponential moving average of xs[start:] with smoothing
// 2/(n+1), seeded with the simple average of its first n values.
func ema(xs []float64, start, n int) []float64 {
	out := nans(len(xs))
	if len(xs)-start < n {
		return out
	}
	var seed float64
	for i := start; i < start+n; i++ {
		seed += xs[i]
	}
	prev := seed / float64(n)
	out[start+n-1] = prev

	alpha := 2 / float64(n+1)
	for i := start + n; i < len(xs); i++ {
		prev = alpha*xs[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

func macdSeries(closes []float64, fast, slow, signal int) (macd, hist, sig []float64) {
	fastEMA := ema(closes, 0, fast)
	slowEMA := ema(closes, 0, slow)
	macd = nans(len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig = ema(macd, slow-1, signal)
	hist = nans(len(closes))
	for i := range closes {
		hist[i] = macd[i] - sig[i]
	}
	return macd, hist, sig
}

// bollinger returns the lower, middle and upper bands, the bandwidth in
// percent of the middle band and the %B position of the close. The band
// uses the population standard deviation.
func bollinger(closes []float64, n int, k float64) (lower, mid, upper, width, pct []float64) {
	size := len(closes)
	lower, mid, upper, width, pct = nans(size), nans(size), nans(size), nans(size), nans(size)
	for i := n - 1; i < size; i++ {
		var sum float64
		for _, c := range closes[i-n+1 : i+1] {
			sum += c
		}
		mean := sum / float64(n)
		var ss float64
		for _, c := range closes[i-n+1 : i+1] {
			d := c - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(n))

		mid[i] = mean
		lower[i] = mean - k*std
		upper[i] = mean + k*std
		if mean != 0 {
			width[i] = (upper[i] - lower[i]) / mean * 100
		}
		if upper[i] != lower[i] {
			pct[i] = (closes[i] - lower[i]) / (upper[i] - lower[i])
		}
	}
	return lower, mid, upper, width, pct
}
