package models

import "time"

// Direction is the outcome of a signal or verdict. Individual indicator
// signals use Buy/Sell/Neutral; aggregate verdicts use Buy/Sell/Hold.
type Direction string

const (
	DirectionBuy     Direction = "Buy"
	DirectionSell    Direction = "Sell"
	DirectionNeutral Direction = "Neutral"
	DirectionHold    Direction = "Hold"
)

// Actionable reports whether a verdict direction should trigger an alert.
func (d Direction) Actionable() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Mode selects the evaluation strategy. Swing additionally computes the
// indicators on the mapped higher timeframe and applies the trend filter;
// Scalping analyzes the primary timeframe only.
type Mode string

const (
	ModeSwing    Mode = "swing"
	ModeScalping Mode = "scalping"
)

// Candle is one OHLCV sample for a fixed time bucket.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// CandleSeries is an ordered (oldest to newest) candle sequence for one
// (exchange, symbol, timeframe). A series is built fresh per fetch and is
// never mutated in place; normalization returns a new series.
type CandleSeries struct {
	Exchange  string   `json:"exchange"`
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Candles   []Candle `json:"candles"`
}

// Last returns the most recent candle of the series.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Closes extracts the closing-price series.
func (s CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// IndicatorSnapshot holds the latest value of each indicator computed over a
// series. Absence is explicit: a Has* flag set to false means the series was
// too short (or the candle lacked the field), never that the value is zero.
type IndicatorSnapshot struct {
	RSI        float64 `json:"rsi"`
	MACDLine   float64 `json:"macd_line"`
	MACDSignal float64 `json:"macd_signal"`
	EMA9       float64 `json:"ema9"`
	EMA21      float64 `json:"ema21"`
	Price      float64 `json:"price"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Volume     float64 `json:"volume"`
	AvgVolume  float64 `json:"avg_volume"`

	HasRSI    bool `json:"has_rsi"`
	HasMACD   bool `json:"has_macd"`
	HasEMA    bool `json:"has_ema"`
	HasRange  bool `json:"has_range"`
	HasVolume bool `json:"has_volume"`
}

// Signal is one per-indicator reading.
type Signal struct {
	Indicator  string    `json:"indicator"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// Verdict is the synthesized recommendation for one evaluation cycle.
// Direction and OverallConfidence are computed deterministically from the
// signals; Entry/StopLoss/TakeProfit and the prose fields come from the
// oracle and are advisory only.
type Verdict struct {
	Pair              string    `json:"pair"`
	Exchange          string    `json:"exchange"`
	Timeframe         string    `json:"timeframe"`
	Mode              Mode      `json:"mode"`
	Direction         Direction `json:"direction"`
	OverallConfidence float64   `json:"overall_confidence"`
	Entry             float64   `json:"entry"`
	StopLoss          float64   `json:"stop_loss"`
	TakeProfit        float64   `json:"take_profit"`
	Price             float64   `json:"price"`
	Signals           []Signal  `json:"signals"`

	MarketOverview        string `json:"market_overview,omitempty"`
	IndicatorExplanations string `json:"indicator_explanations,omitempty"`
	RiskManagementAdvice  string `json:"risk_management_advice,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// SentimentLabel classifies the aggregate tone of recent news.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
)

// NewsArticle is one headline considered by the sentiment provider.
type NewsArticle struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Sentiment is the news-sentiment reading for one base asset. An empty
// article list with a Neutral label is a valid "no data" result.
type Sentiment struct {
	Label     SentimentLabel `json:"label"`
	Summary   string         `json:"summary"`
	Reasoning string         `json:"reasoning"`
	Articles  []NewsArticle  `json:"articles"`
}

// TickerUpdate is the latest live price for a symbol from the ticker stream.
type TickerUpdate struct {
	Symbol       string    `json:"symbol"`
	LastPrice    float64   `json:"last_price"`
	Price24hPcnt float64   `json:"price_24h_pcnt"`
	Timestamp    time.Time `json:"timestamp"`
}

// AnalysisRequest identifies one evaluation: which instrument to analyze,
// where, on which timeframe, and in which mode. OracleKey optionally carries
// a caller-supplied credential for the oracle client.
type AnalysisRequest struct {
	Exchange  string `json:"exchange"`
	Pair      string `json:"pair"`
	Timeframe string `json:"timeframe"`
	Mode      Mode   `json:"mode"`
	OracleKey string `json:"-"`
}

// AdviceRequest is the deterministic input handed to the oracle: the raw
// indicator values plus the derived signals and aggregate direction.
type AdviceRequest struct {
	Pair              string
	Timeframe         string
	Mode              Mode
	Price             float64
	High              float64
	Low               float64
	RSI               float64
	MACDLine          float64
	MACDSignal        float64
	EMA9              float64
	EMA21             float64
	Direction         Direction
	OverallConfidence float64
	Signals           []Signal
}

// OracleAdvice is the validated oracle output. The oracle owns the price
// levels and narrative; its BuySellSignal and OverallConfidence are checked
// for shape but the deterministic values remain authoritative.
type OracleAdvice struct {
	MarketOverview        string  `json:"marketOverview"`
	IndicatorExplanations string  `json:"indicatorExplanations"`
	BuySellSignal         string  `json:"buySellSignal"`
	OverallConfidence     float64 `json:"overallConfidence"`
	Entry                 float64 `json:"entry"`
	StopLoss              float64 `json:"stopLoss"`
	TakeProfit            float64 `json:"takeProfit"`
	RiskManagementAdvice  string  `json:"riskManagementAdvice"`
}
