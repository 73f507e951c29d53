package normalize

import (
	"fmt"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
)

// TimeframeSpec is a logical timeframe code plus its nominal bucket duration
// and the logical code of the higher timeframe used as a trend filter.
type TimeframeSpec struct {
	Code     string
	Duration time.Duration
	Higher   string
}

var timeframes = map[string]TimeframeSpec{
	"15m": {Code: "15m", Duration: 15 * time.Minute, Higher: "1h"},
	"1h":  {Code: "1h", Duration: time.Hour, Higher: "4h"},
	"4h":  {Code: "4h", Duration: 4 * time.Hour, Higher: "1D"},
	"1D":  {Code: "1D", Duration: 24 * time.Hour, Higher: ""},
}

// nativeCodes maps logical codes to each exchange's vocabulary. A missing
// entry means the exchange has no exact equivalent and the fallback chain
// applies.
var nativeCodes = map[string]map[string]string{
	common.ExchangeBybit: {
		"15m": "15",
		"1h":  "60",
		"4h":  "240",
		"1D":  "D",
	},
	common.ExchangeNami: {
		"15m": "15",
		"1h":  "60",
		"4h":  "240",
		"1D":  "1D",
	},
	common.ExchangeOnus: {
		"15m": "15",
		"1h":  "60",
		"1D":  "1D",
	},
}

// fallback points each code at its lower neighbour. When an exchange has no
// native equivalent we request the lower timeframe instead of silently
// truncating history; the caller logs the substitution.
var fallback = map[string]string{
	"1D": "4h",
	"4h": "1h",
	"1h": "15m",
}

// ResolveTimeframe maps a logical code to its spec.
func ResolveTimeframe(code string) (TimeframeSpec, error) {
	tf, ok := timeframes[code]
	if !ok {
		return TimeframeSpec{}, fmt.Errorf("unsupported timeframe %q", code)
	}
	return tf, nil
}

// Native returns the exchange's code for this timeframe together with the
// logical code it corresponds to. When the exchange has no exact equivalent
// the fallback chain is walked downward, so logical differs from t.Code and
// the fetched candles must be resampled up to the requested bucket.
func (t TimeframeSpec) Native(exchange string) (code, logical string) {
	table, ok := nativeCodes[exchange]
	if !ok {
		return "", ""
	}
	if c, ok := table[t.Code]; ok {
		return c, t.Code
	}
	for l := fallback[t.Code]; l != ""; l = fallback[l] {
		if c, ok := table[l]; ok {
			return c, l
		}
	}
	return "", ""
}

// Lookback is the wall-clock window to request so that limit candles exist.
func (t TimeframeSpec) Lookback(limit int) time.Duration {
	if limit <= 0 {
		limit = common.DefaultFetchLimit
	}
	return t.Duration * time.Duration(limit)
}

// HigherSpec resolves the filter timeframe, if any.
func (t TimeframeSpec) HigherSpec() (TimeframeSpec, bool) {
	if t.Higher == "" {
		return TimeframeSpec{}, false
	}
	tf, ok := timeframes[t.Higher]
	return tf, ok
}
