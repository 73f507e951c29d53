package exchanges

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/normalize"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

const (
	defaultNamiURL   = "https://nami.exchange"
	defaultNamiLimit = 1500
)

// Nami serves chart history as a bare JSON array of numeric
// [ts, open, high, low, close, volume] tuples ordered oldest first. On a
// logical failure it returns an object {status, message} instead of an
// array, which maps to a rejection rather than a malformed response.
type Nami struct {
	baseURL  string
	maxLimit int
	client   *http.Client
	log      *util.Logger
	now      func() time.Time
}

func NewNami(cfg config.ExchangeConfig) *Nami {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultNamiURL
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = defaultNamiLimit
	}
	return &Nami{
		baseURL:  baseURL,
		maxLimit: maxLimit,
		client:   &http.Client{Timeout: cfg.GetTimeout()},
		log:      util.NewLogger("nami"),
		now:      time.Now,
	}
}

func (n *Nami) Name() string {
	return common.ExchangeNami
}

type namiError struct {
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
}

func (n *Nami) FetchCandles(ctx context.Context, symbol string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error) {
	if symbol == "" {
		return models.CandleSeries{}, fmt.Errorf("nami: empty symbol: %w", common.ErrExchangeRejected)
	}
	if limit <= 0 {
		limit = common.DefaultFetchLimit
	}
	if limit > n.maxLimit {
		limit = n.maxLimit
	}

	native, logical := tf.Native(common.ExchangeNami)
	if native == "" {
		return models.CandleSeries{}, fmt.Errorf("nami: no native code for timeframe %s: %w", tf.Code, common.ErrExchangeRejected)
	}
	if logical != tf.Code {
		logFallback(n.log, common.ExchangeNami, tf.Code, logical)
	}

	// The history endpoint takes a window, not a count; derive it from the
	// timeframe's lookback so at least limit candles fit.
	to := n.now().UTC()
	from := to.Add(-tf.Lookback(limit))

	u := fmt.Sprintf("%s/api/v1/chart/history?symbol=%s&resolution=%s&from=%d&to=%d",
		n.baseURL, url.QueryEscape(symbol), native, from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("nami: %v: %w", err, common.ErrExchangeUnavailable)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("nami: %v: %w", err, common.ErrExchangeUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CandleSeries{}, fmt.Errorf("nami: read body: %v: %w", err, common.ErrExchangeUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return models.CandleSeries{}, fmt.Errorf("nami: HTTP %d: %w", resp.StatusCode, common.ErrExchangeUnavailable)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return models.CandleSeries{}, fmt.Errorf("nami: empty body: %w", common.ErrMalformedResponse)
	}

	// An object instead of an array is Nami's error envelope.
	if trimmed[0] == '{' {
		var ne namiError
		if err := json.Unmarshal(trimmed, &ne); err == nil && (ne.Message != "" || len(ne.Status) > 0) {
			return models.CandleSeries{}, fmt.Errorf("nami: %s: %w", ne.Message, common.ErrExchangeRejected)
		}
		n.log.Error(nil, common.ErrCodeMalformedResponse, common.ErrMsgMalformedResponse,
			"Nami history returned unexpected object", "payload", string(body))
		return models.CandleSeries{}, fmt.Errorf("nami: unexpected object body: %w", common.ErrMalformedResponse)
	}

	var rows [][]float64
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		n.log.Error(err, common.ErrCodeMalformedResponse, common.ErrMsgMalformedResponse,
			"Nami history decode failed", "payload", string(body))
		return models.CandleSeries{}, fmt.Errorf("nami: decode: %v: %w", err, common.ErrMalformedResponse)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			n.log.Warn(common.ErrCodeCandleDropped, common.ErrMsgCandleDropped,
				"Skipping short Nami history row", "symbol", symbol, "len", len(row))
			continue
		}
		candles = append(candles, models.Candle{
			OpenTime: namiTime(row[0]),
			Open:     row[1],
			High:     row[2],
			Low:      row[3],
			Close:    row[4],
			Volume:   row[5],
		})
	}

	return models.CandleSeries{
		Exchange:  common.ExchangeNami,
		Symbol:    symbol,
		Timeframe: logical,
		Candles:   candles,
	}, nil
}

// namiTime accepts both second and millisecond epochs; the API has shipped both.
func namiTime(ts float64) time.Time {
	v := int64(ts)
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
