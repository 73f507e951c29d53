package util

import (
	"strconv"
	"strings"
)

func ParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Known quote assets, longest first so BaseAsset strips greedily.
var quoteAssets = []string{"VNDC", "USDT", "USD"}

// BaseAsset extracts the base symbol from a pair, e.g. BTCUSDT -> BTC,
// ETH/VNDC -> ETH. Used to key news lookups.
func BaseAsset(pair string) string {
	p := strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
	p = strings.ReplaceAll(p, "_", "")
	for _, q := range quoteAssets {
		if strings.HasSuffix(p, q) && len(p) > len(q) {
			return strings.TrimSuffix(p, q)
		}
	}
	return p
}

// PairToBybit maps a pair to Bybit's native symbol (e.g. BTC/USDT -> BTCUSDT).
func PairToBybit(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// PairToNami maps a pair to Nami's native symbol. Nami lists VNDC-quoted
// spot pairs, with an underscore only for the USDT/VNDC cross.
func PairToNami(pair string) string {
	p := strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
	if p == "USDTVNDC" {
		return "USDT_VNDC"
	}
	return p
}

// PairToOnus maps a pair to Onus's native symbol (same flat format as Bybit).
func PairToOnus(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}
