package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/monitor"
	"github.com/duyhung112/crypto-insights/internal/news"
	"github.com/duyhung112/crypto-insights/internal/normalize"
	"github.com/duyhung112/crypto-insights/internal/service"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

type stubSource struct {
	err error
}

func (s *stubSource) FetchCandles(_ context.Context, exchange, symbol string, tf normalize.TimeframeSpec, _ int) (models.CandleSeries, error) {
	if s.err != nil {
		return models.CandleSeries{}, s.err
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 60)
	for i := range candles {
		candles[i] = models.Candle{
			OpenTime: start.Add(time.Duration(i) * tf.Duration),
			Open:     100 + float64(i),
			High:     105 + float64(i),
			Low:      95 + float64(i),
			Close:    101 + float64(i),
			Volume:   10,
		}
	}
	return models.CandleSeries{Exchange: exchange, Symbol: symbol, Timeframe: tf.Code, Candles: candles}, nil
}

type stubSentiments struct{}

func (stubSentiments) GetSentiment(context.Context, news.Classifier, string) (models.Sentiment, error) {
	return models.Sentiment{Label: models.SentimentNeutral, Articles: []models.NewsArticle{}}, nil
}

type stubTicker struct {
	updates map[string]models.TickerUpdate
}

func (s *stubTicker) Latest(symbol string) (models.TickerUpdate, bool) {
	u, ok := s.updates[symbol]
	return u, ok
}

type noopDispatcher struct{}

func (noopDispatcher) Send(context.Context, string) bool { return true }

func stubOracle(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := `{"marketOverview":"o","indicatorExplanations":"e","buySellSignal":"BUY","overallConfidence":70,"entry":100,"stopLoss":95,"takeProfit":110,"riskManagementAdvice":"r"}`
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
	}))
}

func testServer(t *testing.T, source *stubSource) (*Server, *monitor.Scheduler, func()) {
	t.Helper()
	oracleSrv := stubOracle(t)
	cfg := &config.Config{
		Oracle:     config.OracleConfig{BaseURL: oracleSrv.URL, APIKey: "k", TimeoutSec: 5},
		MinCandles: 50,
	}
	svc := service.NewService(cfg, source, stubSentiments{})
	scheduler := monitor.NewScheduler(svc, noopDispatcher{}, time.Hour)
	ticker := &stubTicker{updates: map[string]models.TickerUpdate{
		"BTCUSDT": {Symbol: "BTCUSDT", LastPrice: 160.5},
	}}
	srv := New(cfg, svc, scheduler, ticker)
	return srv, scheduler, func() {
		scheduler.StopAll()
		oracleSrv.Close()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, _, done := testServer(t, &stubSource{})
	defer done()
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/analyze",
		`{"exchange":"bybit","pair":"BTC/USDT","timeframe":"1h","mode":"scalping"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var v models.Verdict
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Bad verdict body: %v", err)
	}
	if v.Direction != models.DirectionBuy {
		t.Errorf("Expected Buy verdict, got %s", v.Direction)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	srv, _, done := testServer(t, &stubSource{})
	defer done()
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/analyze", `{"pair":"BTC/USDT"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing fields, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/analyze",
		`{"exchange":"bybit","pair":"BTC/USDT","timeframe":"1h","mode":"yolo"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid mode, got %d", w.Code)
	}
}

func TestAnalyzeTaxonomyLabel(t *testing.T) {
	srv, _, done := testServer(t, &stubSource{err: fmt.Errorf("boom: %w", common.ErrExchangeUnavailable)})
	defer done()
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/analyze",
		`{"exchange":"bybit","pair":"BTC/USDT","timeframe":"1h","mode":"scalping"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 for exchange failure, got %d", w.Code)
	}

	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error_code"] != common.ErrCodeExchangeUnavailable.String() {
		t.Errorf("Expected taxonomy label, got %+v", body)
	}
}

func TestMonitorLifecycle(t *testing.T) {
	srv, _, done := testServer(t, &stubSource{})
	defer done()
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/monitors",
		`{"exchange":"bybit","pair":"BTC/USDT","timeframe":"1h","mode":"scalping","interval_sec":3600}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]string
	json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"]
	if id == "" {
		t.Fatal("Expected subscription id")
	}

	w = doJSON(t, router, http.MethodGet, "/api/monitors", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Errorf("Expected listing to contain %s: %s", id, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/api/monitors/"+id, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 on stop, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/monitors/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for stopped subscription, got %d", w.Code)
	}
}

func TestTickerEndpoint(t *testing.T) {
	srv, _, done := testServer(t, &stubSource{})
	defer done()
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/api/ticker/BTCUSDT", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var u models.TickerUpdate
	json.Unmarshal(w.Body.Bytes(), &u)
	if u.LastPrice != 160.5 {
		t.Errorf("Expected cached price, got %v", u.LastPrice)
	}

	w = doJSON(t, router, http.MethodGet, "/api/ticker/NOPE", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown symbol, got %d", w.Code)
	}
}

func TestKlinesEndpoint(t *testing.T) {
	srv, _, done := testServer(t, &stubSource{})
	defer done()
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/api/klines?exchange=bybit&pair=BTC/USDT&timeframe=1h", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/klines?exchange=bybit", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing params, got %d", w.Code)
	}
}
