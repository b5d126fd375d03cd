package services

import (
	"context"
	"fmt"
	"time"

	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/logger"
	"moonbags-buybot/shared/utils"
)

// Dispatcher is the single convergence point for buy events. Both the poller
// and the stream hand raw records here; it deduplicates by transaction digest,
// enriches with market data and fans out to every configured group plus the
// trending channel.
type Dispatcher struct {
	groups         GroupReader
	buys           BuyWriter
	boosts         BoostReader
	market         TokenInfoProvider
	sender         AlertSender
	links          alerts.LinkOptions
	trendingMinUSD float64
	log            *logger.Logger

	now func() time.Time
}

func NewDispatcher(groups GroupReader, buys BuyWriter, boosts BoostReader, market TokenInfoProvider,
	sender AlertSender, links alerts.LinkOptions, trendingMinUSD float64, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		groups:         groups,
		buys:           buys,
		boosts:         boosts,
		market:         market,
		sender:         sender,
		links:          links,
		trendingMinUSD: trendingMinUSD,
		log:            log,
		now:            time.Now,
	}
}

// Ingest processes one raw buy event. Records that fail validation or were
// already seen are dropped without error; delivery failures to individual
// groups are logged and do not block the rest of the fan-out.
func (d *Dispatcher) Ingest(ctx context.Context, rec models.BuyRecord) error {
	if err := validateBuy(rec); err != nil {
		d.log.Debug("Dropping malformed buy event", "digest", rec.TxDigest, "reason", err)
		return nil
	}

	inserted, err := d.buys.InsertIfNew(&rec)
	if err != nil {
		return fmt.Errorf("record buy %s: %w", rec.TxDigest, err)
	}
	if !inserted {
		return nil
	}

	// Enrichment is best-effort: an alert with zeroed market fields beats a
	// dropped alert.
	info, err := d.market.TokenInfo(ctx, rec.TokenAddress)
	if err != nil {
		d.log.Warn("Market data unavailable for alert", "token", rec.TokenAddress, "error", err)
		info = models.TokenInfo{}
	}

	groups, err := d.groups.ForToken(rec.TokenAddress)
	if err != nil {
		return fmt.Errorf("load groups for %s: %w", rec.TokenAddress, err)
	}

	for _, grp := range groups {
		if rec.UsdValue < grp.MinBuyUSD {
			continue
		}
		alert := alerts.FormatBuyAlert(rec, info, grp, d.links)
		if err := d.sender.SendGroupAlert(grp.GroupID, alert); err != nil {
			d.log.Error("Failed to deliver buy alert", "group", grp.GroupID, "digest", rec.TxDigest, "error", err)
		}
	}

	if d.qualifiesForTrending(rec) {
		text := alerts.FormatTrendingAlert(rec, info, d.links)
		if err := d.sender.SendTrending(text); err != nil {
			d.log.Error("Failed to deliver trending alert", "digest", rec.TxDigest, "error", err)
		}
	}
	return nil
}

// qualifiesForTrending applies the big-buy threshold, with an active boost
// waiving it entirely.
func (d *Dispatcher) qualifiesForTrending(rec models.BuyRecord) bool {
	if rec.UsdValue >= d.trendingMinUSD {
		return true
	}
	boosted, err := d.boosts.IsActive(rec.TokenAddress, d.now())
	if err != nil {
		d.log.Warn("Boost lookup failed, assuming not boosted", "token", rec.TokenAddress, "error", err)
		return false
	}
	return boosted
}

func validateBuy(rec models.BuyRecord) error {
	if rec.TxDigest == "" {
		return fmt.Errorf("missing transaction digest")
	}
	if !utils.ValidateCoinType(rec.TokenAddress) {
		return fmt.Errorf("malformed coin type %q", rec.TokenAddress)
	}
	if rec.BuyerAddress == "" {
		return fmt.Errorf("missing buyer address")
	}
	if rec.TokenAmount <= 0 {
		return fmt.Errorf("non-positive token amount")
	}
	if rec.UsdValue < 0 {
		return fmt.Errorf("negative usd value")
	}
	return nil
}
