package signal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/duyhung112/crypto-insights/pkg/models"
)

// PriceAdvisor produces entry/stop/take-profit levels and narrative for a
// deterministic signal set. The advisor is fallible: timeouts and malformed
// output surface as errors and the cycle is aborted rather than the
// synthesizer inventing price levels itself.
type PriceAdvisor interface {
	Advise(ctx context.Context, req models.AdviceRequest) (models.OracleAdvice, error)
}

// Input carries everything one synthesis needs. Higher and Sentiment are
// optional; their absence degrades the verdict instead of failing it.
type Input struct {
	Pair      string
	Exchange  string
	Timeframe string
	Mode      models.Mode
	Primary   models.IndicatorSnapshot
	Higher    *models.IndicatorSnapshot
	Sentiment *models.Sentiment
}

// Synthesizer derives per-indicator signals and one aggregate verdict.
// The per-indicator rules and the aggregation are fully deterministic.
type Synthesizer struct {
	now func() time.Time
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{now: time.Now}
}

// Synthesize computes the deterministic signal set, applies the
// higher-timeframe filter and news nudge, then asks the advisor for price
// levels and narrative. Advisor failure aborts with no verdict.
func (s *Synthesizer) Synthesize(ctx context.Context, advisor PriceAdvisor, in Input) (models.Verdict, error) {
	signals := s.Signals(in.Primary)

	direction, confidence := aggregate(signals)

	if in.Higher != nil && in.Higher.HasEMA {
		htf := higherTrendSignal(*in.Higher)
		signals = append(signals, htf)
		// The higher timeframe filters confidence; it never flips direction.
		if direction.Actionable() && htf.Direction.Actionable() {
			if htf.Direction != direction {
				confidence *= 0.6
			} else {
				confidence = math.Min(100, confidence*1.1)
			}
		}
	}

	if in.Sentiment != nil {
		news := sentimentSignal(*in.Sentiment)
		signals = append(signals, news)
		confidence = nudge(confidence, direction, in.Sentiment.Label)
	}

	confidence = clamp(confidence, 0, 100)

	advice, err := advisor.Advise(ctx, models.AdviceRequest{
		Pair:              in.Pair,
		Timeframe:         in.Timeframe,
		Mode:              in.Mode,
		Price:             in.Primary.Price,
		High:              in.Primary.High,
		Low:               in.Primary.Low,
		RSI:               in.Primary.RSI,
		MACDLine:          in.Primary.MACDLine,
		MACDSignal:        in.Primary.MACDSignal,
		EMA9:              in.Primary.EMA9,
		EMA21:             in.Primary.EMA21,
		Direction:         direction,
		OverallConfidence: confidence,
		Signals:           signals,
	})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("synthesize %s %s: %w", in.Pair, in.Timeframe, err)
	}

	return models.Verdict{
		Pair:                  in.Pair,
		Exchange:              in.Exchange,
		Timeframe:             in.Timeframe,
		Mode:                  in.Mode,
		Direction:             direction,
		OverallConfidence:     confidence,
		Entry:                 advice.Entry,
		StopLoss:              advice.StopLoss,
		TakeProfit:            advice.TakeProfit,
		Price:                 in.Primary.Price,
		Signals:               signals,
		MarketOverview:        advice.MarketOverview,
		IndicatorExplanations: advice.IndicatorExplanations,
		RiskManagementAdvice:  advice.RiskManagementAdvice,
		EvaluatedAt:           s.now().UTC(),
	}, nil
}

// Signals derives the per-indicator readings from a primary snapshot.
// Absent indicators simply contribute no entry.
func (s *Synthesizer) Signals(snap models.IndicatorSnapshot) []models.Signal {
	out := make([]models.Signal, 0, 4)

	if snap.HasRSI {
		out = append(out, rsiSignal(snap.RSI))
	}
	if snap.HasMACD {
		out = append(out, macdSignal(snap.MACDLine, snap.MACDSignal, snap.Price))
	}
	if snap.HasEMA {
		out = append(out, emaSignal(snap.EMA9, snap.EMA21))
	}
	if snap.HasVolume && snap.AvgVolume > 0 {
		out = append(out, volumeSignal(snap.Volume, snap.AvgVolume))
	}

	return out
}

func rsiSignal(rsi float64) models.Signal {
	dir := models.DirectionNeutral
	switch {
	case rsi < 30:
		dir = models.DirectionBuy
	case rsi > 70:
		dir = models.DirectionSell
	}
	return models.Signal{
		Indicator:  "RSI",
		Direction:  dir,
		Confidence: clamp(math.Abs(rsi-50)*2, 0, 100),
		Reasoning:  fmt.Sprintf("RSI(14) at %.1f", rsi),
	}
}

func macdSignal(line, sig, price float64) models.Signal {
	diff := line - sig
	dir := models.DirectionNeutral
	switch {
	case diff > 0:
		dir = models.DirectionBuy
	case diff < 0:
		dir = models.DirectionSell
	}
	// Confidence scales with the line/signal gap relative to price.
	bps := 0.0
	if price > 0 {
		bps = math.Abs(diff) / price * 10000
	}
	return models.Signal{
		Indicator:  "MACD",
		Direction:  dir,
		Confidence: clamp(10+bps, 10, 100),
		Reasoning:  fmt.Sprintf("MACD line %.4f vs signal %.4f", line, sig),
	}
}

func emaSignal(fast, slow float64) models.Signal {
	dir := models.DirectionNeutral
	switch {
	case fast > slow:
		dir = models.DirectionBuy
	case fast < slow:
		dir = models.DirectionSell
	}
	gapPct := 0.0
	if slow > 0 {
		gapPct = math.Abs(fast-slow) / slow * 100
	}
	return models.Signal{
		Indicator:  "EMA Cross",
		Direction:  dir,
		Confidence: clamp(gapPct*25, 5, 100),
		Reasoning:  fmt.Sprintf("EMA9 %.4f vs EMA21 %.4f", fast, slow),
	}
}

func volumeSignal(vol, avg float64) models.Signal {
	ratio := vol / avg
	reason := "volume below trailing average"
	if ratio >= 1 {
		reason = "volume above trailing average"
	}
	return models.Signal{
		Indicator:  "Volume",
		Direction:  models.DirectionNeutral,
		Confidence: clamp(ratio*40, 0, 100),
		Reasoning:  fmt.Sprintf("%s (%.2fx)", reason, ratio),
	}
}

func higherTrendSignal(snap models.IndicatorSnapshot) models.Signal {
	sig := emaSignal(snap.EMA9, snap.EMA21)
	sig.Indicator = "Higher Timeframe Trend"
	sig.Reasoning = "higher timeframe " + sig.Reasoning
	return sig
}

func sentimentSignal(sent models.Sentiment) models.Signal {
	dir := models.DirectionNeutral
	switch sent.Label {
	case models.SentimentPositive:
		dir = models.DirectionBuy
	case models.SentimentNegative:
		dir = models.DirectionSell
	}
	reason := sent.Reasoning
	if reason == "" {
		reason = sent.Summary
	}
	return models.Signal{
		Indicator:  "News Sentiment",
		Direction:  dir,
		Confidence: 30,
		Reasoning:  reason,
	}
}

// aggregate computes the confidence-weighted majority among the non-Neutral
// core signals. A tie, or no directional signal at all, resolves to Hold
// with confidence capped at 50. The winning side's confidence blends its
// share of the vote weight with its own average strength, so a lone weak
// vote cannot report certainty. Only the primary per-indicator signals vote;
// the higher-timeframe trend and news act as filters afterwards.
func aggregate(signals []models.Signal) (models.Direction, float64) {
	var buyW, sellW, total float64
	var nBuy, nSell int
	for _, sig := range signals {
		switch sig.Direction {
		case models.DirectionBuy:
			buyW += sig.Confidence
			nBuy++
		case models.DirectionSell:
			sellW += sig.Confidence
			nSell++
		default:
			continue
		}
		total += sig.Confidence
	}

	if n := nBuy + nSell; n == 0 || buyW == sellW {
		avg := 0.0
		if n > 0 {
			avg = total / float64(n)
		}
		return models.DirectionHold, clamp(avg, 0, 50)
	}

	if buyW > sellW {
		return models.DirectionBuy, blendConfidence(buyW, total, nBuy)
	}
	return models.DirectionSell, blendConfidence(sellW, total, nSell)
}

// blendConfidence scales the winning side's share of the vote weight by its
// average per-signal confidence.
func blendConfidence(winW, total float64, n int) float64 {
	share := winW / total * 100
	avg := winW / float64(n)
	return clamp(share*avg/100, 0, 100)
}

func nudge(confidence float64, dir models.Direction, label models.SentimentLabel) float64 {
	const step = 5
	switch label {
	case models.SentimentPositive:
		if dir == models.DirectionBuy {
			return confidence + step
		}
		if dir == models.DirectionSell {
			return confidence - step
		}
	case models.SentimentNegative:
		if dir == models.DirectionSell {
			return confidence + step
		}
		if dir == models.DirectionBuy {
			return confidence - step
		}
	}
	return confidence
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
