package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

func oracleFor(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewClient("test-key", config.OracleConfig{BaseURL: srv.URL, TimeoutSec: 5})
	return c, srv.Close
}

func modelText(t *testing.T, text string) []byte {
	t.Helper()
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"parts": []map[string]string{{"text": text}}}},
		},
	}
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func adviceJSON() string {
	return `{"marketOverview":"calm","indicatorExplanations":"explained",
		"buySellSignal":"BUY","overallConfidence":70,
		"entry":100,"stopLoss":95,"takeProfit":110,
		"riskManagementAdvice":"size down"}`
}

func adviceRequest() models.AdviceRequest {
	return models.AdviceRequest{
		Pair: "BTC/USDT", Timeframe: "1h", Mode: models.ModeSwing,
		Price: 100, Direction: models.DirectionBuy, OverallConfidence: 70,
	}
}

func TestAdviseValidResponse(t *testing.T) {
	c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected credential in query, got %s", r.URL.Query().Get("key"))
		}
		w.Write(modelText(t, adviceJSON()))
	})
	defer done()

	advice, err := c.Advise(context.Background(), adviceRequest())
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if advice.Entry != 100 || advice.StopLoss != 95 || advice.TakeProfit != 110 {
		t.Errorf("Unexpected advice %+v", advice)
	}
}

func TestAdviseHTTPError(t *testing.T) {
	c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer done()

	_, err := c.Advise(context.Background(), adviceRequest())
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected ErrOracleUnavailable on HTTP error, got %v", err)
	}
}

func TestAdviseTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(modelText(t, adviceJSON()))
	}))
	defer srv.Close()

	c := NewClient("test-key", config.OracleConfig{BaseURL: srv.URL, TimeoutSec: 5})
	c.timeout = 50 * time.Millisecond

	_, err := c.Advise(context.Background(), adviceRequest())
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected ErrOracleUnavailable when the model is slower than the deadline, got %v", err)
	}
}

func TestAdviseUnparsableOutput(t *testing.T) {
	c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(modelText(t, "I think you should buy, good luck!"))
	})
	defer done()

	_, err := c.Advise(context.Background(), adviceRequest())
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected ErrOracleUnavailable for prose output, got %v", err)
	}
}

func TestAdviseRejectsOutOfRange(t *testing.T) {
	cases := []string{
		`{"buySellSignal":"BUY","overallConfidence":150,"entry":100,"stopLoss":95,"takeProfit":110}`,
		`{"buySellSignal":"MOON","overallConfidence":70,"entry":100,"stopLoss":95,"takeProfit":110}`,
		`{"buySellSignal":"SELL","overallConfidence":70,"entry":0,"stopLoss":95,"takeProfit":110}`,
	}
	for _, payload := range cases {
		c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write(modelText(t, payload))
		})
		_, err := c.Advise(context.Background(), adviceRequest())
		done()
		if !errors.Is(err, common.ErrOracleUnavailable) {
			t.Errorf("Expected validation failure for %s, got %v", payload, err)
		}
	}
}

func TestAdviseEmptyCandidates(t *testing.T) {
	c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})
	defer done()

	_, err := c.Advise(context.Background(), adviceRequest())
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected ErrOracleUnavailable for empty candidates, got %v", err)
	}
}

func TestClassifySentiment(t *testing.T) {
	c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(modelText(t, `{"sentiment":"Positive","summary":"good week","reasoning":"inflows"}`))
	})
	defer done()

	articles := []models.NewsArticle{{Title: "ETF inflows continue"}}
	sent, err := c.ClassifySentiment(context.Background(), "BTC", articles)
	if err != nil {
		t.Fatalf("ClassifySentiment failed: %v", err)
	}
	if sent.Label != models.SentimentPositive {
		t.Errorf("Expected Positive, got %s", sent.Label)
	}
	if len(sent.Articles) != 1 {
		t.Error("Expected articles carried on the sentiment")
	}
}

func TestClassifySentimentInvalidLabel(t *testing.T) {
	c, done := oracleFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(modelText(t, `{"sentiment":"Bullish","summary":"","reasoning":""}`))
	})
	defer done()

	_, err := c.ClassifySentiment(context.Background(), "BTC", nil)
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Errorf("Expected ErrOracleUnavailable for invalid label, got %v", err)
	}
}

func TestNewClientCredentialFallback(t *testing.T) {
	c := NewClient("", config.OracleConfig{APIKey: "from-config"})
	if c.apiKey != "from-config" {
		t.Errorf("Expected config API key fallback, got %q", c.apiKey)
	}
	c = NewClient("caller-key", config.OracleConfig{APIKey: "from-config"})
	if c.apiKey != "caller-key" {
		t.Errorf("Expected caller credential to win, got %q", c.apiKey)
	}
}
