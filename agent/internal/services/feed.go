package services

import (
	"context"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/logger"
)

// Ingestor receives raw buy events from a BuySource.
type Ingestor interface {
	Ingest(ctx context.Context, rec models.BuyRecord) error
}

// Poller is the polling BuySource: every interval it asks the market data API
// for recent buys of each tracked coin type and hands them to the dispatcher.
// Per-token checkpoints only advance after a successful fetch, so a transient
// API failure is retried on the next tick instead of losing a window. The
// digest dedupe downstream makes overlapping windows harmless.
type Poller struct {
	groups      GroupReader
	fetcher     TradeFetcher
	ingestor    Ingestor
	interval    time.Duration
	log         *logger.Logger
	checkpoints map[string]time.Time
}

func NewPoller(groups GroupReader, fetcher TradeFetcher, ingestor Ingestor, interval time.Duration, log *logger.Logger) *Poller {
	return &Poller{
		groups:      groups,
		fetcher:     fetcher,
		ingestor:    ingestor,
		interval:    interval,
		log:         log,
		checkpoints: make(map[string]time.Time),
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.log.Info("Buy feed poller starting", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Buy feed poller stopping")
			return
		case <-ticker.C:
			p.tick(ctx, start)
		}
	}
}

func (p *Poller) tick(ctx context.Context, startedAt time.Time) {
	tokens, err := p.groups.TrackedTokens()
	if err != nil {
		p.log.Error("Failed to list tracked tokens", "error", err)
		return
	}
	for _, token := range tokens {
		p.pollToken(ctx, token, startedAt)
	}
	p.pruneCheckpoints(tokens)
}

func (p *Poller) pollToken(ctx context.Context, token string, startedAt time.Time) {
	since, ok := p.checkpoints[token]
	if !ok {
		// Never alert on history predating the process.
		since = startedAt
	}

	buys, err := p.fetcher.RecentBuys(ctx, token, since)
	if err != nil {
		p.log.Warn("Buy fetch failed, keeping checkpoint", "token", token, "error", err)
		return
	}

	latest := since
	for _, buy := range buys {
		if err := p.ingestor.Ingest(ctx, buy); err != nil {
			p.log.Error("Failed to ingest buy", "digest", buy.TxDigest, "error", err)
		}
		if buy.BlockTime.After(latest) {
			latest = buy.BlockTime
		}
	}
	p.checkpoints[token] = latest
}

func (p *Poller) pruneCheckpoints(tracked []string) {
	keep := make(map[string]struct{}, len(tracked))
	for _, t := range tracked {
		keep[t] = struct{}{}
	}
	for token := range p.checkpoints {
		if _, ok := keep[token]; !ok {
			delete(p.checkpoints, token)
		}
	}
}
