package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

func defaultEngine() *Engine {
	cfg := config.Config{}
	return NewEngine(cfg.GetIndicators())
}

func seriesOf(closes []float64) models.CandleSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     c,
			High:     c * 1.01,
			Low:      c * 0.99,
			Close:    c,
			Volume:   10,
		}
	}
	return models.CandleSeries{Exchange: "bybit", Symbol: "BTCUSDT", Timeframe: "1h", Candles: candles}
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestComputeEmptySeries(t *testing.T) {
	e := defaultEngine()
	if _, ok := e.Compute(models.CandleSeries{}); ok {
		t.Error("Expected ok=false for empty series")
	}
}

func TestComputeRSIFloor(t *testing.T) {
	e := defaultEngine()

	snap, ok := e.Compute(seriesOf(rising(14)))
	if ok && snap.HasRSI {
		t.Error("RSI should be absent at 14 candles")
	}

	snap, ok = e.Compute(seriesOf(rising(15)))
	if !ok || !snap.HasRSI {
		t.Fatal("RSI should be present at 15 candles")
	}
	if snap.RSI <= 50 {
		t.Errorf("Monotonic rise should yield RSI above 50, got %.2f", snap.RSI)
	}
}

func TestComputeMACDFloor(t *testing.T) {
	e := defaultEngine()

	snap, _ := e.Compute(seriesOf(rising(34)))
	if snap.HasMACD {
		t.Error("MACD should be absent at 34 candles")
	}

	snap, ok := e.Compute(seriesOf(rising(35)))
	if !ok || !snap.HasMACD {
		t.Fatal("MACD should be present at 35 candles")
	}
	if snap.MACDLine <= snap.MACDSignal {
		t.Errorf("Monotonic rise should put MACD line above signal, got %.4f vs %.4f",
			snap.MACDLine, snap.MACDSignal)
	}
}

func TestComputeMACDZeroCross(t *testing.T) {
	e := defaultEngine()

	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}

	snap, ok := e.Compute(seriesOf(flat))
	if !ok || !snap.HasMACD {
		t.Fatal("MACD should be present on a flat 40-candle series")
	}
	if snap.MACDLine != 0 || snap.MACDSignal != 0 {
		t.Errorf("Flat series should put MACD exactly at zero, got %.6f / %.6f",
			snap.MACDLine, snap.MACDSignal)
	}
}

func TestComputeEMAOrdering(t *testing.T) {
	e := defaultEngine()

	snap, ok := e.Compute(seriesOf(rising(60)))
	if !ok || !snap.HasEMA {
		t.Fatal("EMAs should be present at 60 candles")
	}
	if snap.EMA9 <= snap.EMA21 {
		t.Errorf("Rising series should have fast EMA above slow, got %.4f vs %.4f",
			snap.EMA9, snap.EMA21)
	}
}

func TestComputeSnapshotCarriesLastCandle(t *testing.T) {
	e := defaultEngine()
	series := seriesOf(rising(60))
	last := series.Candles[len(series.Candles)-1]

	snap, ok := e.Compute(series)
	if !ok {
		t.Fatal("Expected ok snapshot")
	}
	if snap.Price != last.Close || snap.High != last.High || snap.Low != last.Low {
		t.Errorf("Snapshot does not reflect last candle: %+v", snap)
	}
	if !snap.HasRange || !snap.HasVolume {
		t.Error("Expected range and volume flags set")
	}
	if math.Abs(snap.AvgVolume-10) > 1e-9 {
		t.Errorf("Expected avg volume 10, got %v", snap.AvgVolume)
	}
}

func TestMinCandles(t *testing.T) {
	e := defaultEngine()
	if got := e.MinCandles(); got != 35 {
		t.Errorf("Expected indicator floor 35 with default periods, got %d", got)
	}
}
