package indicator

import (
	"math"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/pkg/models"
	"github.com/markcheno/go-talib"
)

// Engine computes RSI, MACD and the fast/slow EMA pair over a candle series
// and reports only the most recent value of each. Readiness is explicit:
// an indicator whose minimum history is not met is flagged absent on the
// snapshot instead of defaulting to zero.
type Engine struct {
	cfg config.IndicatorConfig
}

func NewEngine(cfg config.IndicatorConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Compute evaluates all indicators over the series. ok is false when the
// series is too short for any indicator to be defined; otherwise the
// snapshot's Has* flags say which values are usable. RSI needs period+1
// candles, MACD needs slow+signal, the EMAs need their period.
func (e *Engine) Compute(series models.CandleSeries) (models.IndicatorSnapshot, bool) {
	closes := series.Closes()
	n := len(closes)

	last, ok := series.Last()
	if !ok {
		return models.IndicatorSnapshot{}, false
	}

	snap := models.IndicatorSnapshot{
		Price:  last.Close,
		High:   last.High,
		Low:    last.Low,
		Volume: last.Volume,
	}

	// High/low/volume of the last candle are inputs to the synthesizer but
	// not to the price-derived indicators; zero or missing values only clear
	// the presence flags.
	snap.HasRange = last.High > 0 && last.Low > 0
	snap.HasVolume = last.Volume > 0

	if n >= e.cfg.RSIPeriod+1 {
		rsi := talib.Rsi(closes, e.cfg.RSIPeriod)
		if v := rsi[len(rsi)-1]; defined(v) {
			snap.RSI = v
			snap.HasRSI = true
		}
	}

	if n >= e.cfg.MACDSlow+e.cfg.MACDSignal {
		line, sig, _ := talib.Macd(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
		l, s := line[len(line)-1], sig[len(sig)-1]
		if defined(l) && defined(s) {
			snap.MACDLine = l
			snap.MACDSignal = s
			snap.HasMACD = true
		}
	}

	if n >= e.cfg.EMASlow {
		fast := talib.Ema(closes, e.cfg.EMAFast)
		slow := talib.Ema(closes, e.cfg.EMASlow)
		f, s := fast[len(fast)-1], slow[len(slow)-1]
		if defined(f) && defined(s) {
			snap.EMA9 = f
			snap.EMA21 = s
			snap.HasEMA = true
		}
	}

	if snap.HasVolume {
		snap.AvgVolume = trailingAvgVolume(series, common.VolumeLookback)
	}

	if !snap.HasRSI && !snap.HasMACD && !snap.HasEMA {
		return models.IndicatorSnapshot{}, false
	}
	return snap, true
}

// MinCandles is the series length at which every indicator is defined.
func (e *Engine) MinCandles() int {
	min := e.cfg.RSIPeriod + 1
	if v := e.cfg.MACDSlow + e.cfg.MACDSignal; v > min {
		min = v
	}
	if e.cfg.EMASlow > min {
		min = e.cfg.EMASlow
	}
	return min
}

func trailingAvgVolume(series models.CandleSeries, lookback int) float64 {
	n := len(series.Candles)
	if n == 0 {
		return 0
	}
	start := n - lookback
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, c := range series.Candles[start:n] {
		sum += c.Volume
	}
	return sum / float64(n-start)
}

// Zero is a legal indicator value (a MACD line crossing through zero); the
// length guards in Compute keep talib's warmup zeros out of the last element.
func defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
