package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/duyhung112/crypto-insights/internal/aggregator"
	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/indicator"
	"github.com/duyhung112/crypto-insights/internal/news"
	"github.com/duyhung112/crypto-insights/internal/normalize"
	"github.com/duyhung112/crypto-insights/internal/oracle"
	"github.com/duyhung112/crypto-insights/internal/signal"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
)

// CandleSource fetches raw candles for one exchange/symbol/timeframe. The
// exchange registry implements it.
type CandleSource interface {
	FetchCandles(ctx context.Context, exchange, symbol string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error)
}

// SentimentSource resolves the news-sentiment reading for a base asset.
type SentimentSource interface {
	GetSentiment(ctx context.Context, classifier news.Classifier, baseSymbol string) (models.Sentiment, error)
}

// Service runs one full evaluation: fetch, normalize, compute indicators,
// synthesize. The primary-timeframe pipeline is required; the higher
// timeframe and news sentiment degrade to absent on failure instead of
// failing the cycle.
type Service struct {
	source     CandleSource
	normalizer *normalize.Normalizer
	engine     *indicator.Engine
	synth      *signal.Synthesizer
	news       SentimentSource
	cfg        *config.Config
	log        *util.Logger
}

func NewService(cfg *config.Config, source CandleSource, sentiments SentimentSource) *Service {
	return &Service{
		source:     source,
		normalizer: normalize.New(cfg.GetMinCandles()),
		engine:     indicator.NewEngine(cfg.GetIndicators()),
		synth:      signal.NewSynthesizer(),
		news:       sentiments,
		cfg:        cfg,
		log:        util.NewLogger("service"),
	}
}

// Evaluate runs one cycle for the request. The oracle client is built per
// call so a caller-supplied credential never outlives its cycle.
func (s *Service) Evaluate(ctx context.Context, req models.AnalysisRequest) (models.Verdict, error) {
	tf, err := normalize.ResolveTimeframe(req.Timeframe)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("evaluate %s: %w", req.Pair, err)
	}

	client := oracle.NewClient(req.OracleKey, s.cfg.Oracle)

	var (
		primary   models.IndicatorSnapshot
		higher    *models.IndicatorSnapshot
		sentiment *models.Sentiment
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snap, err := s.snapshot(gctx, req.Exchange, req.Pair, tf)
		if err != nil {
			return err
		}
		primary = snap
		return nil
	})

	if req.Mode == models.ModeSwing {
		if htf, ok := tf.HigherSpec(); ok {
			g.Go(func() error {
				snap, err := s.snapshot(gctx, req.Exchange, req.Pair, htf)
				if err != nil {
					// The trend filter is an enhancement; its absence degrades
					// the verdict rather than failing the cycle.
					s.log.Warn(common.Taxonomy(err), common.ErrMsgEvaluationFailed,
						"Higher timeframe unavailable, proceeding without trend filter",
						"pair", req.Pair, "timeframe", htf.Code, "error", err.Error())
					return nil
				}
				higher = &snap
				return nil
			})
		}
	}

	g.Go(func() error {
		sent, err := s.news.GetSentiment(gctx, client, util.BaseAsset(req.Pair))
		if err != nil {
			s.log.Warn(common.Taxonomy(err), common.ErrMsgEvaluationFailed,
				"News sentiment unavailable, proceeding without it",
				"pair", req.Pair, "error", err.Error())
			return nil
		}
		sentiment = &sent
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.Verdict{}, fmt.Errorf("evaluate %s %s: %w", req.Pair, req.Timeframe, err)
	}

	verdict, err := s.synth.Synthesize(ctx, client, signal.Input{
		Pair:      req.Pair,
		Exchange:  req.Exchange,
		Timeframe: req.Timeframe,
		Mode:      req.Mode,
		Primary:   primary,
		Higher:    higher,
		Sentiment: sentiment,
	})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("evaluate %s %s: %w", req.Pair, req.Timeframe, err)
	}

	s.log.Info("Evaluation complete",
		"pair", req.Pair, "exchange", req.Exchange, "timeframe", req.Timeframe,
		"mode", req.Mode, "direction", verdict.Direction, "confidence", verdict.OverallConfidence)
	return verdict, nil
}

// Klines fetches and normalizes one series without analyzing it.
func (s *Service) Klines(ctx context.Context, exchange, pair, timeframe string, limit int) (models.CandleSeries, error) {
	tf, err := normalize.ResolveTimeframe(timeframe)
	if err != nil {
		return models.CandleSeries{}, err
	}
	return s.series(ctx, exchange, pair, tf, limit)
}

// series runs fetch -> normalize -> resample for one timeframe. Resampling
// only happens when the exchange served a lower timeframe than requested.
func (s *Service) series(ctx context.Context, exchange, pair string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error) {
	raw, err := s.source.FetchCandles(ctx, exchange, nativeSymbol(exchange, pair), tf, limit)
	if err != nil {
		return models.CandleSeries{}, err
	}

	series, err := s.normalizer.Normalize(raw)
	if err != nil {
		return models.CandleSeries{}, err
	}

	return aggregator.Resample(series, tf), nil
}

// snapshot computes the indicator snapshot for one timeframe.
func (s *Service) snapshot(ctx context.Context, exchange, pair string, tf normalize.TimeframeSpec) (models.IndicatorSnapshot, error) {
	series, err := s.series(ctx, exchange, pair, tf, common.DefaultFetchLimit)
	if err != nil {
		return models.IndicatorSnapshot{}, err
	}

	snap, ok := s.engine.Compute(series)
	if !ok {
		return models.IndicatorSnapshot{}, fmt.Errorf("%s %s %s: %d candles below indicator floor %d: %w",
			exchange, pair, tf.Code, len(series.Candles), s.engine.MinCandles(), common.ErrInsufficientHistory)
	}
	return snap, nil
}

func nativeSymbol(exchange, pair string) string {
	switch exchange {
	case common.ExchangeNami:
		return util.PairToNami(pair)
	case common.ExchangeOnus:
		return util.PairToOnus(pair)
	default:
		return util.PairToBybit(pair)
	}
}
