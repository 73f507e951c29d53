package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
	"github.com/google/uuid"
)

// State is the lifecycle position of one subscription's loop.
type State string

const (
	StateIdle       State = "idle"
	StateEvaluating State = "evaluating"
	StateNotifying  State = "notifying"
	StateStopped    State = "stopped"
)

// Evaluator runs one full pipeline pass for a request. The service layer
// implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, req models.AnalysisRequest) (models.Verdict, error)
}

// Dispatcher delivers one alert. The boolean is the only failure surface.
type Dispatcher interface {
	Send(ctx context.Context, message string) bool
}

// Subscription is one live monitoring registration. It is mutated only by
// its own loop (and the scheduler's interactive trigger, which shares the
// same cycle path); subscriptions never share state with each other.
type Subscription struct {
	ID       string
	Request  models.AnalysisRequest
	Interval time.Duration

	mu              sync.Mutex
	state           State
	lastDirection   models.Direction
	lastEvaluatedAt time.Time

	// cycleMu serializes full cycles: an interactive check landing
	// mid-tick waits for the running cycle instead of racing its dedup
	// read-modify-write.
	cycleMu sync.Mutex

	cancel context.CancelFunc
}

func (s *Subscription) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// View is an immutable snapshot of a subscription for read-only surfaces.
type View struct {
	ID              string           `json:"id"`
	Exchange        string           `json:"exchange"`
	Pair            string           `json:"pair"`
	Timeframe       string           `json:"timeframe"`
	Mode            models.Mode      `json:"mode"`
	IntervalSec     int              `json:"interval_sec"`
	State           State            `json:"state"`
	LastDirection   models.Direction `json:"last_direction,omitempty"`
	LastEvaluatedAt time.Time        `json:"last_evaluated_at"`
}

func (s *Subscription) view() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:              s.ID,
		Exchange:        s.Request.Exchange,
		Pair:            s.Request.Pair,
		Timeframe:       s.Request.Timeframe,
		Mode:            s.Request.Mode,
		IntervalSec:     int(s.Interval / time.Second),
		State:           s.state,
		LastDirection:   s.lastDirection,
		LastEvaluatedAt: s.lastEvaluatedAt,
	}
}

// Scheduler owns one timer-driven evaluation loop per subscription. Loops
// are independent: a failing subscription never affects the others, and a
// failed cycle never counts as a verdict for dedup purposes.
type Scheduler struct {
	eval            Evaluator
	dispatcher      Dispatcher
	defaultInterval time.Duration
	priceFn         func(symbol string) (models.TickerUpdate, bool)

	mu   sync.Mutex
	subs map[string]*Subscription
	wg   sync.WaitGroup

	log *util.Logger
}

func NewScheduler(eval Evaluator, dispatcher Dispatcher, defaultInterval time.Duration) *Scheduler {
	if defaultInterval <= 0 {
		defaultInterval = time.Duration(common.DefaultMonitorIntervalSec) * time.Second
	}
	return &Scheduler{
		eval:            eval,
		dispatcher:      dispatcher,
		defaultInterval: defaultInterval,
		subs:            make(map[string]*Subscription),
		log:             util.NewLogger("monitor"),
	}
}

// SetPriceSource wires an optional live-price lookup used to stamp the
// current price into alert messages.
func (s *Scheduler) SetPriceSource(fn func(symbol string) (models.TickerUpdate, bool)) {
	s.priceFn = fn
}

// Start registers a subscription and launches its loop. The first
// evaluation runs immediately, then on every interval tick.
func (s *Scheduler) Start(req models.AnalysisRequest, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = s.defaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		ID:       uuid.NewString(),
		Request:  req,
		Interval: interval,
		state:    StateIdle,
		cancel:   cancel,
	}

	s.mu.Lock()
	s.subs[sub.ID] = sub
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, sub)

	s.log.Info("Monitoring started",
		"id", sub.ID, "exchange", req.Exchange, "pair", req.Pair,
		"timeframe", req.Timeframe, "mode", req.Mode, "interval", interval.String())
	return sub
}

func (s *Scheduler) run(ctx context.Context, sub *Subscription) {
	defer s.wg.Done()

	ticker := time.NewTicker(sub.Interval)
	defer ticker.Stop()

	s.runSilent(ctx, sub)

	for {
		select {
		case <-ticker.C:
			s.runSilent(ctx, sub)
		case <-ctx.Done():
			sub.setState(StateStopped)
			return
		}
	}
}

// runSilent is the scheduler-triggered call-site: errors go to the log and
// nowhere else.
func (s *Scheduler) runSilent(ctx context.Context, sub *Subscription) {
	if _, err := s.cycle(ctx, sub); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.Error(err, common.Taxonomy(err), common.ErrMsgEvaluationFailed,
			"Silent evaluation failed", "id", sub.ID, "pair", sub.Request.Pair)
	}
}

// TriggerNow is the interactive call-site: it runs a cycle immediately,
// mid-interval, and surfaces the error to the caller.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (models.Verdict, error) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	s.mu.Unlock()
	if !ok {
		return models.Verdict{}, fmt.Errorf("no subscription %s", id)
	}
	return s.cycle(ctx, sub)
}

// cycle runs one Idle -> Evaluating -> (Notifying | Idle) pass. Cycles for
// one subscription never overlap, so a timer tick and an interactive check
// cannot both observe the pre-alert direction and double-notify. A dispatch
// failure is logged and the cycle still completes; a pipeline error returns
// the subscription to Idle with its dedup state untouched.
func (s *Scheduler) cycle(ctx context.Context, sub *Subscription) (models.Verdict, error) {
	sub.cycleMu.Lock()
	defer sub.cycleMu.Unlock()

	sub.setState(StateEvaluating)

	verdict, err := s.eval.Evaluate(ctx, sub.Request)

	sub.mu.Lock()
	sub.lastEvaluatedAt = time.Now().UTC()
	last := sub.lastDirection
	sub.mu.Unlock()

	if err != nil {
		sub.setState(StateIdle)
		return models.Verdict{}, err
	}

	if verdict.Direction.Actionable() && verdict.Direction != last {
		sub.setState(StateNotifying)
		if !s.dispatcher.Send(ctx, s.formatAlert(sub, verdict)) {
			s.log.Warn(common.ErrCodeDispatchFailed, common.ErrMsgDispatchFailed,
				"Alert not delivered", "id", sub.ID, "pair", sub.Request.Pair)
		}
		// The transition is recorded even when delivery fails; there is no
		// automatic redelivery.
		sub.mu.Lock()
		sub.lastDirection = verdict.Direction
		sub.mu.Unlock()
	}

	sub.setState(StateIdle)
	return verdict, nil
}

// Stop cancels a subscription's loop, interrupting any in-flight
// evaluation, and removes it from the registry.
func (s *Scheduler) Stop(id string) bool {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	sub.cancel()
	s.log.Info("Monitoring stopped", "id", id, "pair", sub.Request.Pair)
	return true
}

// StopAll cancels every subscription and waits for the loops to exit.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, sub := range s.subs {
		sub.cancel()
		delete(s.subs, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// List snapshots all live subscriptions.
func (s *Scheduler) List() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]View, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub.view())
	}
	return out
}

func (s *Scheduler) formatAlert(sub *Subscription, v models.Verdict) string {
	price := v.Price
	if s.priceFn != nil {
		if tick, ok := s.priceFn(sub.Request.Pair); ok {
			price = tick.LastPrice
		}
	}
	return fmt.Sprintf(
		"**New Signal: %s %s (%s)**\nMode: %s | Timeframe: %s\nCurrent price: %.6f\nConfidence: %.0f/100\n---\n**Suggested Trade Plan:**\n- Entry: %.6f\n- Stop Loss: %.6f\n- Take Profit: %.6f",
		v.Direction, v.Pair, sub.Request.Exchange,
		v.Mode, v.Timeframe, price, v.OverallConfidence,
		v.Entry, v.StopLoss, v.TakeProfit,
	)
}
