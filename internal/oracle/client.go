package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
)

// Client talks to the generative-model API that produces price levels,
// narrative, and news-sentiment classification. There is no shared global
// instance: each caller constructs a Client from its own credential and owns
// it for the duration of one evaluation cycle.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
	hc      *http.Client
	log     *util.Logger
}

// NewClient builds a Client for one credential. An empty credential falls
// back to the configured API key.
func NewClient(credential string, cfg config.OracleConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	if credential == "" {
		credential = cfg.APIKey
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cfg.TimeoutSec <= 0 {
		timeout = time.Duration(common.DefaultOracleTimeoutSec) * time.Second
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  credential,
		timeout: timeout,
		hc:      &http.Client{},
		log:     util.NewLogger("oracle"),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Advise asks the model for entry/stop/take-profit levels and narrative for
// a deterministic signal set. Every failure mode, including timeout, HTTP
// error, unparsable output, and out-of-range values, maps to
// ErrOracleUnavailable; no price level is ever fabricated locally.
func (c *Client) Advise(ctx context.Context, req models.AdviceRequest) (models.OracleAdvice, error) {
	raw, err := c.generate(ctx, advisePrompt(req))
	if err != nil {
		return models.OracleAdvice{}, err
	}

	var advice models.OracleAdvice
	if err := json.Unmarshal([]byte(raw), &advice); err != nil {
		return models.OracleAdvice{}, fmt.Errorf("oracle: decode advice: %v: %w", err, common.ErrOracleUnavailable)
	}
	if err := validateAdvice(advice); err != nil {
		return models.OracleAdvice{}, fmt.Errorf("oracle: %v: %w", err, common.ErrOracleUnavailable)
	}
	return advice, nil
}

type sentimentPayload struct {
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
	Reasoning string `json:"reasoning"`
}

// ClassifySentiment labels a batch of headlines Positive, Negative, or
// Neutral for one base asset.
func (c *Client) ClassifySentiment(ctx context.Context, symbol string, articles []models.NewsArticle) (models.Sentiment, error) {
	raw, err := c.generate(ctx, sentimentPrompt(symbol, articles))
	if err != nil {
		return models.Sentiment{}, err
	}

	var payload sentimentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.Sentiment{}, fmt.Errorf("oracle: decode sentiment: %v: %w", err, common.ErrOracleUnavailable)
	}

	label := models.SentimentLabel(payload.Sentiment)
	switch label {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
	default:
		return models.Sentiment{}, fmt.Errorf("oracle: invalid sentiment label %q: %w", payload.Sentiment, common.ErrOracleUnavailable)
	}

	return models.Sentiment{
		Label:     label,
		Summary:   payload.Summary,
		Reasoning: payload.Reasoning,
		Articles:  articles,
	}, nil
}

// generate runs one prompt under the client's timeout and returns the text
// of the first candidate part.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config:   genConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("oracle: marshal request: %v: %w", err, common.ErrOracleUnavailable)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("oracle: %v: %w", err, common.ErrOracleUnavailable)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle: %v: %w", err, common.ErrOracleUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oracle: read body: %v: %w", err, common.ErrOracleUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle: HTTP %d: %w", resp.StatusCode, common.ErrOracleUnavailable)
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		c.log.Error(err, common.ErrCodeOracleUnavailable, common.ErrMsgOracleUnavailable,
			"Oracle response decode failed", "payload", string(respBody))
		return "", fmt.Errorf("oracle: decode response: %v: %w", err, common.ErrOracleUnavailable)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("oracle: empty response: %w", common.ErrOracleUnavailable)
	}

	return gr.Candidates[0].Content.Parts[0].Text, nil
}

func validateAdvice(a models.OracleAdvice) error {
	if a.OverallConfidence < 0 || a.OverallConfidence > 100 {
		return fmt.Errorf("confidence %.1f out of range", a.OverallConfidence)
	}
	switch strings.ToUpper(a.BuySellSignal) {
	case "BUY", "SELL", "HOLD":
	default:
		return fmt.Errorf("invalid buy/sell signal %q", a.BuySellSignal)
	}
	if a.Entry <= 0 || a.StopLoss <= 0 || a.TakeProfit <= 0 {
		return fmt.Errorf("non-positive price level (entry=%.4f sl=%.4f tp=%.4f)", a.Entry, a.StopLoss, a.TakeProfit)
	}
	return nil
}

func advisePrompt(req models.AdviceRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a crypto trading analyst. Analyze %s on the %s timeframe in %s mode.\n",
		req.Pair, req.Timeframe, req.Mode)
	fmt.Fprintf(&sb, "Current price: %.6f, candle high: %.6f, candle low: %.6f.\n", req.Price, req.High, req.Low)
	fmt.Fprintf(&sb, "Indicators: RSI(14)=%.2f, MACD line=%.6f, MACD signal=%.6f, EMA9=%.6f, EMA21=%.6f.\n",
		req.RSI, req.MACDLine, req.MACDSignal, req.EMA9, req.EMA21)
	fmt.Fprintf(&sb, "Derived aggregate: %s with confidence %.0f/100.\n", req.Direction, req.OverallConfidence)
	sb.WriteString("Per-indicator signals:\n")
	for _, sig := range req.Signals {
		fmt.Fprintf(&sb, "- %s: %s (%.0f) %s\n", sig.Indicator, sig.Direction, sig.Confidence, sig.Reasoning)
	}
	sb.WriteString(`Respond with strict JSON only, no markdown, with exactly these fields:
{"marketOverview": string, "indicatorExplanations": string, "buySellSignal": "BUY"|"SELL"|"HOLD",
"overallConfidence": number 0-100, "entry": number, "stopLoss": number, "takeProfit": number,
"riskManagementAdvice": string}. Price levels must be realistic relative to the current price.`)
	return sb.String()
}

func sentimentPrompt(symbol string, articles []models.NewsArticle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a financial analyst. Classify the overall news sentiment for %s.\n", symbol)
	sb.WriteString("Articles:\n")
	for _, a := range articles {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", a.Title, a.Source, a.Snippet)
	}
	sb.WriteString(`Respond with strict JSON only:
{"sentiment": "Positive"|"Negative"|"Neutral", "summary": string, "reasoning": string}.`)
	return sb.String()
}
