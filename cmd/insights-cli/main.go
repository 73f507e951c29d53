package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/duyhung112/crypto-insights/pkg/models"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	serverAddr := flag.String("server", "http://localhost:8080", "Analysis server base URL")
	exchange := flag.String("exchange", "bybit", "Exchange to fetch candles from (bybit, nami, onus)")
	pair := flag.String("pair", "BTC/USDT", "Trading pair to analyze")
	timeframe := flag.String("timeframe", "1h", "Timeframe (15m, 1h, 4h, 1D)")
	mode := flag.String("mode", "swing", "Analysis mode (swing, scalping)")
	oracleKey := flag.String("oracle-key", "", "Oracle API key (overrides server config)")
	timeout := flag.Int("timeout", 120, "Request timeout in seconds")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	verdict, err := analyze(ctx, *serverAddr, map[string]string{
		"exchange":   *exchange,
		"pair":       *pair,
		"timeframe":  *timeframe,
		"mode":       *mode,
		"oracle_key": *oracleKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis request failed")
	}

	printVerdict(verdict)
}

func analyze(ctx context.Context, baseURL string, params map[string]string) (models.Verdict, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return models.Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return models.Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return models.Verdict{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Verdict{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return models.Verdict{}, fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, payload)
	}

	var verdict models.Verdict
	if err := json.Unmarshal(payload, &verdict); err != nil {
		return models.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return verdict, nil
}

func printVerdict(v models.Verdict) {
	fmt.Printf("%s on %s (%s, %s mode)\n", v.Pair, v.Exchange, v.Timeframe, v.Mode)
	fmt.Printf("Verdict: %s (confidence %.0f/100) at price %.6f\n\n", v.Direction, v.OverallConfidence, v.Price)

	for _, sig := range v.Signals {
		fmt.Printf("  %-22s %-8s %5.0f  %s\n", sig.Indicator, sig.Direction, sig.Confidence, sig.Reasoning)
	}

	if v.Direction.Actionable() {
		fmt.Printf("\nTrade plan: entry %.6f, stop loss %.6f, take profit %.6f\n", v.Entry, v.StopLoss, v.TakeProfit)
	}
	if v.MarketOverview != "" {
		fmt.Printf("\n%s\n", v.MarketOverview)
	}
	if v.RiskManagementAdvice != "" {
		fmt.Printf("\nRisk: %s\n", v.RiskManagementAdvice)
	}
}
