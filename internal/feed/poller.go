package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
)

const (
	SourcePrices    = "prices"
	SourceYields    = "yields"
	SourceGas       = "gas"
	SourcePortfolio = "portfolio"
)

// anchorAge places the reference derived from a 24h change just inside a
// 24h window.
const anchorAge = 24*time.Hour - time.Minute

type PriceSource interface {
	Prices(ctx context.Context) (PriceSnapshot, error)
}

type YieldSource interface {
	Yields(ctx context.Context) ([]alert.YieldOpportunity, error)
}

type GasSource interface {
	GasPrices(ctx context.Context) (map[string]float64, error)
}

type PortfolioSource interface {
	PortfolioValue(ctx context.Context) (float64, error)
}

// Sink receives snapshots and failures. *alert.Manager implements it.
type Sink interface {
	CheckPrices(prices map[string]float64) []alert.Alert
	CheckPortfolio(value float64) []alert.Alert
	CheckGas(gasPrices map[string]float64) []alert.Alert
	CheckYields(opportunities []alert.YieldOpportunity) []alert.Alert
	ReportFailure(source string, err error) alert.Alert
}

// Seeder receives reference prices derived from provider 24h changes.
type Seeder interface {
	Seed(symbol string, price float64, at time.Time)
}

type job struct {
	source   string
	interval time.Duration
	poll     func(ctx context.Context) (int, error)
}

// Poller runs each market source on its own ticker and feeds the result
// to the sink. A failing source raises one security alert when it starts
// failing and logs until it recovers.
type Poller struct {
	sink   Sink
	seeder Seeder
	logger *slog.Logger
	now    func() time.Time
	jobs   []job

	mu      sync.Mutex
	failing map[string]bool
}

func NewPoller(sink Sink, seeder Seeder, logger *slog.Logger) *Poller {
	return &Poller{
		sink:    sink,
		seeder:  seeder,
		logger:  logger,
		now:     time.Now,
		failing: make(map[string]bool),
	}
}

func (p *Poller) AddPrices(src PriceSource, interval time.Duration) {
	p.add(SourcePrices, interval, func(ctx context.Context) (int, error) {
		snap, err := src.Prices(ctx)
		if err != nil {
			return 0, err
		}

		if p.seeder != nil {
			at := p.now().Add(-anchorAge)
			for symbol, change := range snap.Change24h {
				price, ok := snap.Prices[symbol]
				if !ok || change <= -100 {
					continue
				}
				p.seeder.Seed(symbol, price/(1+change/100), at)
			}
		}

		return len(p.sink.CheckPrices(snap.Prices)), nil
	})
}

func (p *Poller) AddYields(src YieldSource, interval time.Duration) {
	p.add(SourceYields, interval, func(ctx context.Context) (int, error) {
		opps, err := src.Yields(ctx)
		if err != nil {
			return 0, err
		}
		return len(p.sink.CheckYields(opps)), nil
	})
}

func (p *Poller) AddGas(src GasSource, interval time.Duration) {
	p.add(SourceGas, interval, func(ctx context.Context) (int, error) {
		prices, err := src.GasPrices(ctx)
		if err != nil {
			return 0, err
		}
		return len(p.sink.CheckGas(prices)), nil
	})
}

func (p *Poller) AddPortfolio(src PortfolioSource, interval time.Duration) {
	p.add(SourcePortfolio, interval, func(ctx context.Context) (int, error) {
		value, err := src.PortfolioValue(ctx)
		if err != nil {
			return 0, err
		}
		return len(p.sink.CheckPortfolio(value)), nil
	})
}

func (p *Poller) add(source string, interval time.Duration, poll func(ctx context.Context) (int, error)) {
	if interval <= 0 {
		interval = time.Minute
	}
	p.jobs = append(p.jobs, job{source: source, interval: interval, poll: poll})
}

// Run polls every source immediately, then on its interval, until ctx
// is cancelled.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range p.jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			p.loop(ctx, j)
		}(j)
	}

	p.logger.Info("market poller started", "sources", len(p.jobs))
	wg.Wait()
	p.logger.Info("market poller stopped")
}

// PollOnce runs every source once, sequentially.
func (p *Poller) PollOnce(ctx context.Context) {
	for _, j := range p.jobs {
		p.runJob(ctx, j)
	}
}

func (p *Poller) loop(ctx context.Context, j job) {
	p.runJob(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runJob(ctx, j)
		}
	}
}

func (p *Poller) runJob(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("market source panicked", "source", j.source, "panic", r)
			p.fail(j.source, fmt.Errorf("%s poll panicked: %v", j.source, r))
		}
	}()

	fired, err := j.poll(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		p.fail(j.source, err)
		return
	}

	p.markHealthy(j.source)
	p.logger.Debug("market snapshot polled", "source", j.source, "alerts", fired)
}

func (p *Poller) fail(source string, err error) {
	p.mu.Lock()
	already := p.failing[source]
	p.failing[source] = true
	p.mu.Unlock()

	if already {
		p.logger.Warn("market source still failing", "source", source, "error", err)
		return
	}
	p.sink.ReportFailure(source, err)
}

func (p *Poller) markHealthy(source string) {
	p.mu.Lock()
	was := p.failing[source]
	delete(p.failing, source)
	p.mu.Unlock()

	if was {
		p.logger.Info("market source recovered", "source", source)
	}
}
