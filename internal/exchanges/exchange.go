package exchanges

import (
	"context"
	"fmt"

	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/normalize"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
	"golang.org/x/sync/semaphore"

	"github.com/duyhung112/crypto-insights/internal/common"
)

// Adapter fetches raw candles from one exchange. Implementations guarantee
// the returned series is ordered oldest to newest regardless of the
// exchange's native ordering, and that a series shorter than limit is not an
// error. Adapters do no caching and no retrying; both live above them.
type Adapter interface {
	Name() string
	FetchCandles(ctx context.Context, symbol string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error)
}

// Registry resolves adapters by exchange name and bounds concurrent API
// calls per exchange with a weighted semaphore so fan-out across
// subscriptions cannot trip rate limits.
type Registry struct {
	adapters map[string]Adapter
	sems     map[string]*semaphore.Weighted
}

func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter),
		sems:     make(map[string]*semaphore.Weighted),
	}

	for _, name := range []string{common.ExchangeBybit, common.ExchangeNami, common.ExchangeOnus} {
		ecfg, _ := cfg.GetExchangeConfig(name)
		switch name {
		case common.ExchangeBybit:
			r.Register(NewBybit(ecfg), ecfg.GetMaxConcurrent())
		case common.ExchangeNami:
			r.Register(NewNami(ecfg), ecfg.GetMaxConcurrent())
		case common.ExchangeOnus:
			r.Register(NewOnus(ecfg), ecfg.GetMaxConcurrent())
		}
	}

	return r
}

func (r *Registry) Register(ad Adapter, maxConcurrent int) {
	if maxConcurrent <= 0 {
		maxConcurrent = common.DefaultMaxConcurrent
	}
	r.adapters[ad.Name()] = ad
	r.sems[ad.Name()] = semaphore.NewWeighted(int64(maxConcurrent))
}

// FetchCandles delegates to the named adapter under its concurrency cap.
func (r *Registry) FetchCandles(ctx context.Context, exchange, symbol string, tf normalize.TimeframeSpec, limit int) (models.CandleSeries, error) {
	ad, ok := r.adapters[exchange]
	if !ok {
		return models.CandleSeries{}, fmt.Errorf("no adapter registered for exchange %q", exchange)
	}

	sem := r.sems[exchange]
	if err := sem.Acquire(ctx, 1); err != nil {
		return models.CandleSeries{}, err
	}
	defer sem.Release(1)

	return ad.FetchCandles(ctx, symbol, tf, limit)
}

// logFallback records a timeframe substitution when an exchange has no exact
// native code for the requested logical timeframe.
func logFallback(log *util.Logger, exchange, requested, fetched string) {
	log.Warn(common.ErrCodeUnknownTimeframe, common.ErrMsgUnknownTimeframe,
		"No exact native timeframe, fetching lower timeframe for resample",
		"exchange", exchange, "timeframe", requested, "fallback", fetched)
}
