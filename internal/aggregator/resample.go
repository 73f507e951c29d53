package aggregator

import (
	"time"

	"github.com/duyhung112/crypto-insights/internal/normalize"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

// bucket accumulates one output candle while finer candles stream into it.
type bucket struct {
	startMs int64
	open    float64
	high    float64
	low     float64
	close   float64
	volume  float64
	hasData bool
}

func (b *bucket) update(c models.Candle) {
	if !b.hasData {
		b.open = c.Open
		b.high = c.High
		b.low = c.Low
		b.hasData = true
	}
	if c.High > b.high {
		b.high = c.High
	}
	if c.Low < b.low {
		b.low = c.Low
	}
	b.close = c.Close
	b.volume += c.Volume
}

func (b *bucket) reset(startMs int64, c models.Candle) {
	b.startMs = startMs
	b.open = c.Open
	b.high = c.High
	b.low = c.Low
	b.close = c.Close
	b.volume = c.Volume
	b.hasData = true
}

// Resample rolls a finer-grained series up into the target timeframe's
// buckets. Bucket boundaries are aligned to the epoch, matching how the
// exchanges align their own candles. The input must already be normalized
// (ascending, deduplicated); a series already at the target granularity
// passes through with only its Timeframe relabeled.
func Resample(series models.CandleSeries, target normalize.TimeframeSpec) models.CandleSeries {
	if series.Timeframe == target.Code || len(series.Candles) == 0 {
		series.Timeframe = target.Code
		return series
	}

	intervalMs := target.Duration.Milliseconds()
	out := make([]models.Candle, 0, len(series.Candles))
	var b bucket

	flush := func() {
		if !b.hasData {
			return
		}
		out = append(out, models.Candle{
			OpenTime: msToTime(b.startMs),
			Open:     b.open,
			High:     b.high,
			Low:      b.low,
			Close:    b.close,
			Volume:   b.volume,
		})
	}

	for i, c := range series.Candles {
		startMs := (c.OpenTime.UnixMilli() / intervalMs) * intervalMs
		if i == 0 {
			b.reset(startMs, c)
			continue
		}
		if startMs != b.startMs {
			flush()
			b.reset(startMs, c)
			continue
		}
		b.update(c)
	}
	flush()

	return models.CandleSeries{
		Exchange:  series.Exchange,
		Symbol:    series.Symbol,
		Timeframe: target.Code,
		Candles:   out,
	}
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
