package exchanges

import (
	"bytes"
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
	defaultOnusURL   = "https://chart.goonus.io"
	defaultOnusLimit = 200
)

// Onus returns a bare array of candle objects whose numeric fields are
// string-typed. Anything that is not an array is a malformed response; the
// exchange has no error envelope of its own.
type Onus struct {
	baseURL  string
	maxLimit int
	client   *http.Client
	log      *util.Logger
}

func NewOnus(cfg config.ExchangeConfig) *Onus {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOnusURL
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = defaultOnusLimit
	}
	return &Onus{
		baseURL:  baseURL,
		maxLimit: maxLimit,
		client:   &http.Client{Timeout: cfg.GetTimeout()},
		log:      util.NewLogger("onus"),
	}
}

func (o *Onus) Name() string {
	return common.ExchangeOnus
}

type onusCandle struct {
	Time   string `json:"time"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (o *Onus) FetchCandles(ctx context.Context, symbol string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error) {
	if symbol == "" {
		return models.CandleSeries{}, fmt.Errorf("onus: empty symbol: %w", common.ErrExchangeRejected)
	}
	if limit <= 0 || limit > o.maxLimit {
		limit = o.maxLimit
	}

	native, logical := tf.Native(common.ExchangeOnus)
	if native == "" {
		return models.CandleSeries{}, fmt.Errorf("onus: no native code for timeframe %s: %w", tf.Code, common.ErrExchangeRejected)
	}
	if logical != tf.Code {
		logFallback(o.log, common.ExchangeOnus, tf.Code, logical)
	}

	u := fmt.Sprintf("%s/chart/api/v1/history?symbol=%s&resolution=%s&limit=%d",
		o.baseURL, url.QueryEscape(symbol), native, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("onus: %v: %w", err, common.ErrExchangeUnavailable)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("onus: %v: %w", err, common.ErrExchangeUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("onus: read body: %v: %w", err, common.ErrExchangeUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return models.CandleSeries{}, fmt.Errorf("onus: HTTP %d: %w", resp.StatusCode, common.ErrExchangeUnavailable)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		o.log.Error(nil, common.ErrCodeMalformedResponse, common.ErrMsgMalformedResponse,
			"Onus history is not an array", "payload", string(body))
		return models.CandleSeries{}, fmt.Errorf("onus: array expected: %w", common.ErrMalformedResponse)
	}

	var rows []onusCandle
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		o.log.Error(err, common.ErrCodeMalformedResponse, common.ErrMsgMalformedResponse,
			"Onus history decode failed", "payload", string(body))
		return models.CandleSeries{}, fmt.Errorf("onus: decode: %v: %w", err, common.ErrMalformedResponse)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, ok := parseOnusCandle(row)
		if !ok {
			o.log.Warn(common.ErrCodeCandleDropped, common.ErrMsgCandleDropped,
				"Skipping unparsable Onus candle", "symbol", symbol, "time", row.Time)
			continue
		}
		candles = append(candles, c)
	}

	return models.CandleSeries{
		Exchange:  common.ExchangeOnus,
		Symbol:    symbol,
		Timeframe: logical,
		Candles:   candles,
	}, nil
}

func parseOnusCandle(row onusCandle) (models.Candle, bool) {
	sec, err := strconv.ParseInt(row.Time, 10, 64)
	if err != nil {
		return models.Candle{}, false
	}
	t := time.Unix(sec, 0).UTC()
	if sec > 1e12 {
		t = time.UnixMilli(sec).UTC()
	}

	vals := make([]float64, 0, 5)
	for _, s := range []string{row.Open, row.High, row.Low, row.Close, row.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, false
		}
		vals = append(vals, v)
	}
	return models.Candle{
		OpenTime: t,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, true
}
