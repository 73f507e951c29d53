package normalize

import (
	"fmt"
	"math"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

// Normalizer repairs a fetched candle series: malformed candles are filtered,
// duplicate timestamps keep the later-arriving candle, regressing timestamps
// are dropped. It never fails on an individual candle; it fails only when the
// surviving series is shorter than the analyzable floor.
type Normalizer struct {
	minCandles int
	log        *util.Logger
}

func New(minCandles int) *Normalizer {
	if minCandles <= 0 {
		minCandles = common.DefaultMinCandles
	}
	return &Normalizer{
		minCandles: minCandles,
		log:        util.NewLogger("normalize"),
	}
}

// Normalize returns a repaired copy of raw. Idempotent: running it on an
// already ascending, deduplicated series returns an identical series.
func (n *Normalizer) Normalize(raw models.CandleSeries) (models.CandleSeries, error) {
	out := make([]models.Candle, 0, len(raw.Candles))

	for _, c := range raw.Candles {
		if !valid(c) {
			n.log.Warn(common.ErrCodeCandleDropped, common.ErrMsgCandleDropped, "Dropped malformed candle",
				"exchange", raw.Exchange, "symbol", raw.Symbol, "open_time", c.OpenTime)
			continue
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if c.OpenTime.Equal(last.OpenTime) {
				// Later-arriving candle wins on a duplicate timestamp.
				out[len(out)-1] = c
				continue
			}
			if c.OpenTime.Before(last.OpenTime) {
				n.log.Warn(common.ErrCodeCandleDropped, common.ErrMsgCandleDropped, "Dropped out-of-order candle",
					"exchange", raw.Exchange, "symbol", raw.Symbol, "open_time", c.OpenTime)
				continue
			}
		}
		out = append(out, c)
	}

	if len(out) < n.minCandles {
		return models.CandleSeries{}, fmt.Errorf("%s %s %s: %d valid candles, need %d: %w",
			raw.Exchange, raw.Symbol, raw.Timeframe, len(out), n.minCandles, common.ErrInsufficientHistory)
	}

	return models.CandleSeries{
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Timeframe: raw.Timeframe,
		Candles:   out,
	}, nil
}

func valid(c models.Candle) bool {
	if c.OpenTime.IsZero() {
		return false
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	// Volume may legitimately be zero on quiet buckets; reject only garbage.
	return !math.IsNaN(c.Volume) && !math.IsInf(c.Volume, 0) && c.Volume >= 0
}
