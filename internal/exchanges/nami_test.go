package exchanges

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
)

func namiFor(t *testing.T, handler http.HandlerFunc) (*Nami, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	n := NewNami(config.ExchangeConfig{BaseURL: srv.URL})
	return n, srv.Close
}

func TestNamiFetchTuples(t *testing.T) {
	payload := `[
		[1735689600, 100, 101, 99, 100.5, 5],
		[1735693200, 100.5, 102, 100, 101.5, 7]
	]`
	n, done := namiFor(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("resolution") != "60" {
			t.Errorf("Expected resolution=60, got %s", q.Get("resolution"))
		}
		if q.Get("from") == "" || q.Get("to") == "" {
			t.Error("Expected from/to window parameters")
		}
		w.Write([]byte(payload))
	})
	defer done()

	series, err := n.FetchCandles(context.Background(), "BTCVNDC", tf1h(t), 200)
	if err != nil {
		t.Fatalf("FetchCandles failed: %v", err)
	}
	if len(series.Candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(series.Candles))
	}
	want := time.Unix(1735689600, 0).UTC()
	if !series.Candles[0].OpenTime.Equal(want) {
		t.Errorf("Expected open time %v, got %v", want, series.Candles[0].OpenTime)
	}
}

func TestNamiMillisecondEpoch(t *testing.T) {
	n, done := namiFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1735689600000, 100, 101, 99, 100.5, 5]]`))
	})
	defer done()

	series, err := n.FetchCandles(context.Background(), "BTCVNDC", tf1h(t), 200)
	if err != nil {
		t.Fatalf("FetchCandles failed: %v", err)
	}
	want := time.UnixMilli(1735689600000).UTC()
	if !series.Candles[0].OpenTime.Equal(want) {
		t.Errorf("Expected ms epoch handled, got %v", series.Candles[0].OpenTime)
	}
}

func TestNamiErrorObjectRejected(t *testing.T) {
	n, done := namiFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"symbol not found"}`))
	})
	defer done()

	_, err := n.FetchCandles(context.Background(), "NOPE", tf1h(t), 200)
	if !errors.Is(err, common.ErrExchangeRejected) {
		t.Errorf("Expected ErrExchangeRejected for error object, got %v", err)
	}
}

func TestNamiGarbageMalformed(t *testing.T) {
	n, done := namiFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})
	defer done()

	_, err := n.FetchCandles(context.Background(), "BTCVNDC", tf1h(t), 200)
	if !errors.Is(err, common.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestNamiTransportUnavailable(t *testing.T) {
	n, done := namiFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer done()

	_, err := n.FetchCandles(context.Background(), "BTCVNDC", tf1h(t), 200)
	if !errors.Is(err, common.ErrExchangeUnavailable) {
		t.Errorf("Expected ErrExchangeUnavailable, got %v", err)
	}
}

func TestNamiSkipsShortRows(t *testing.T) {
	n, done := namiFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1735689600, 100, 101, 99, 100.5, 5], [1735693200, 100.5]]`))
	})
	defer done()

	series, err := n.FetchCandles(context.Background(), "BTCVNDC", tf1h(t), 200)
	if err != nil {
		t.Fatalf("FetchCandles failed: %v", err)
	}
	if len(series.Candles) != 1 {
		t.Errorf("Expected short row skipped, got %d candles", len(series.Candles))
	}
}
