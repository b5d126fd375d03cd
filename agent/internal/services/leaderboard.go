package services

import (
	"context"
	"sort"
	"time"

	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/logger"
	"moonbags-buybot/shared/utils"
)

// RankedToken is one leaderboard slot before market data enrichment.
type RankedToken struct {
	TokenAddress   string
	VolumeUSD      float64
	Boosted        bool
	BoostRemaining time.Duration
}

// Rank orders the union of tokens with recent volume and tokens holding an
// active boost. Boosted tokens always rank above unboosted ones, longer
// remaining boost time first; volume descending breaks the remaining ties.
// Expired boosts must not reach here, the caller passes only active rows.
func Rank(volumes map[string]float64, boosts []models.Boost, now time.Time, size int) []RankedToken {
	byToken := make(map[string]*RankedToken, len(volumes)+len(boosts))
	for token, vol := range volumes {
		byToken[token] = &RankedToken{TokenAddress: token, VolumeUSD: vol}
	}
	for _, boost := range boosts {
		entry, ok := byToken[boost.TokenAddress]
		if !ok {
			entry = &RankedToken{TokenAddress: boost.TokenAddress}
			byToken[boost.TokenAddress] = entry
		}
		entry.Boosted = true
		entry.BoostRemaining = boost.ExpiresAt.Sub(now)
	}

	ranked := make([]RankedToken, 0, len(byToken))
	for _, entry := range byToken {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Boosted != ranked[j].Boosted {
			return ranked[i].Boosted
		}
		if ranked[i].BoostRemaining != ranked[j].BoostRemaining {
			return ranked[i].BoostRemaining > ranked[j].BoostRemaining
		}
		if ranked[i].VolumeUSD != ranked[j].VolumeUSD {
			return ranked[i].VolumeUSD > ranked[j].VolumeUSD
		}
		return ranked[i].TokenAddress < ranked[j].TokenAddress
	})

	if len(ranked) > size {
		ranked = ranked[:size]
	}
	return ranked
}

// LeaderboardJob periodically ranks tracked tokens by recent buy volume and
// publishes the board to the trending channel, pinned.
type LeaderboardJob struct {
	buys     BuyWriter
	boosts   BoostReader
	market   TokenInfoProvider
	sender   AlertSender
	interval time.Duration
	window   time.Duration
	size     int
	log      *logger.Logger

	now func() time.Time
}

func NewLeaderboardJob(buys BuyWriter, boosts BoostReader, market TokenInfoProvider, sender AlertSender,
	interval, window time.Duration, size int, log *logger.Logger) *LeaderboardJob {
	return &LeaderboardJob{
		buys:     buys,
		boosts:   boosts,
		market:   market,
		sender:   sender,
		interval: interval,
		window:   window,
		size:     size,
		log:      log,
		now:      time.Now,
	}
}

func (j *LeaderboardJob) Run(ctx context.Context) {
	j.log.Info("Leaderboard job starting", "interval", j.interval.String(), "window", j.window.String())
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.log.Info("Leaderboard job stopping")
			return
		case <-ticker.C:
			j.publish(ctx)
		}
	}
}

func (j *LeaderboardJob) publish(ctx context.Context) {
	now := j.now()

	volumes, err := j.buys.VolumeSince(now.Add(-j.window))
	if err != nil {
		j.log.Error("Failed to compute leaderboard volumes", "error", err)
		return
	}
	boosts, err := j.boosts.ActiveBoosts(now)
	if err != nil {
		j.log.Error("Failed to load active boosts", "error", err)
		return
	}

	ranked := Rank(volumes, boosts, now, j.size)
	if len(ranked) == 0 {
		j.log.Debug("No leaderboard activity this window")
		return
	}

	entries := make([]alerts.BoardEntry, 0, len(ranked))
	for _, r := range ranked {
		entry := alerts.BoardEntry{
			Symbol:         utils.ShortenAddress(r.TokenAddress, 6),
			TokenAddress:   r.TokenAddress,
			VolumeUSD:      r.VolumeUSD,
			Boosted:        r.Boosted,
			BoostRemaining: r.BoostRemaining,
		}
		if info, err := j.market.TokenInfo(ctx, r.TokenAddress); err == nil {
			if info.Symbol != "" {
				entry.Symbol = info.Symbol
			}
			entry.PriceUSD = info.PriceUSD
			entry.Change24hPct = info.Change24hPct
		} else {
			j.log.Warn("Leaderboard entry without market data", "token", r.TokenAddress, "error", err)
		}
		entries = append(entries, entry)
	}

	text := alerts.FormatLeaderboard(entries, now)
	if err := j.sender.PublishLeaderboard(text); err != nil {
		j.log.Error("Failed to publish leaderboard", "error", err)
	}
}
