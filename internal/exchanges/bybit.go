package exchanges

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/normalize"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

const (
	defaultBybitURL   = "https://api.bybit.com"
	defaultBybitLimit = 1000
)

// Bybit fetches linear-market klines. The v5 API wraps results in a
// status-coded envelope with a nested list of string tuples ordered newest
// first; retCode != 0 is a logical rejection, not a transport failure.
type Bybit struct {
	baseURL  string
	maxLimit int
	client   *http.Client
	log      *util.Logger
}

func NewBybit(cfg config.ExchangeConfig) *Bybit {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBybitURL
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = defaultBybitLimit
	}
	return &Bybit{
		baseURL:  baseURL,
		maxLimit: maxLimit,
		client:   &http.Client{Timeout: cfg.GetTimeout()},
		log:      util.NewLogger("bybit"),
	}
}

func (b *Bybit) Name() string {
	return common.ExchangeBybit
}

type bybitEnvelope struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

func (b *Bybit) FetchCandles(ctx context.Context, symbol string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error) {
	if symbol == "" {
		return models.CandleSeries{}, fmt.Errorf("bybit: empty symbol: %w", common.ErrExchangeRejected)
	}
	if limit <= 0 {
		limit = common.DefaultFetchLimit
	}
	if limit > b.maxLimit {
		limit = b.maxLimit
	}

	native, logical := tf.Native(common.ExchangeBybit)
	if native == "" {
		return models.CandleSeries{}, fmt.Errorf("bybit: no native code for timeframe %s: %w", tf.Code, common.ErrExchangeRejected)
	}
	if logical != tf.Code {
		logFallback(b.log, common.ExchangeBybit, tf.Code, logical)
	}

	u := fmt.Sprintf("%s/v5/market/kline?category=linear&symbol=%s&interval=%s&limit=%d",
		b.baseURL, url.QueryEscape(symbol), native, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("bybit: %v: %w", err, common.ErrExchangeUnavailable)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("bybit: %v: %w", err, common.ErrExchangeUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("bybit: read body: %v: %w", err, common.ErrExchangeUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return models.CandleSeries{}, fmt.Errorf("bybit: HTTP %d: %w", resp.StatusCode, common.ErrExchangeUnavailable)
	}

	var env bybitEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		b.log.Error(err, common.ErrCodeMalformedResponse, common.ErrMsgMalformedResponse,
			"Bybit kline decode failed", "payload", string(body))
		return models.CandleSeries{}, fmt.Errorf("bybit: decode: %v: %w", err, common.ErrMalformedResponse)
	}
	if env.RetCode != 0 {
		return models.CandleSeries{}, fmt.Errorf("bybit: retCode %d: %s: %w", env.RetCode, env.RetMsg, common.ErrExchangeRejected)
	}

	candles := make([]models.Candle, 0, len(env.Result.List))
	for _, row := range env.Result.List {
		c, ok := b.parseRow(row)
		if !ok {
			b.log.Warn(common.ErrCodeCandleDropped, common.ErrMsgCandleDropped,
				"Skipping unparsable Bybit kline row", "symbol", symbol, "row", row)
			continue
		}
		candles = append(candles, c)
	}

	// Bybit returns newest first; the canonical order is oldest first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return models.CandleSeries{
		Exchange:  common.ExchangeBybit,
		Symbol:    symbol,
		Timeframe: logical,
		Candles:   candles,
	}, nil
}

// parseRow decodes one [startTime, open, high, low, close, volume, ...] tuple.
func (b *Bybit) parseRow(row []string) (models.Candle, bool) {
	if len(row) < 6 {
		return models.Candle{}, false
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, false
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Candle{}, false
		}
		vals[i] = v
	}
	return models.Candle{
		OpenTime: time.UnixMilli(ms).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, true
}
