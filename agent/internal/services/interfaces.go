package services

import (
	"context"
	"time"

	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/agent/internal/models"
)

// Consumer-side views of the database stores and outbound clients, so the
// pipeline pieces can be exercised against in-process fakes.

type GroupReader interface {
	ForToken(tokenAddress string) ([]models.GroupConfig, error)
	TrackedTokens() ([]string, error)
}

type BuyWriter interface {
	InsertIfNew(rec *models.BuyRecord) (bool, error)
	VolumeSince(cutoff time.Time) (map[string]float64, error)
}

type BoostReader interface {
	IsActive(tokenAddress string, now time.Time) (bool, error)
	ActiveBoosts(now time.Time) ([]models.Boost, error)
}

// TokenInfoProvider fetches current market data for a coin type.
type TokenInfoProvider interface {
	TokenInfo(ctx context.Context, tokenAddress string) (models.TokenInfo, error)
}

// TradeFetcher lists recent buys of a coin type strictly after the cutoff.
type TradeFetcher interface {
	RecentBuys(ctx context.Context, tokenAddress string, since time.Time) ([]models.BuyRecord, error)
}

// PaymentVerifier checks a transaction digest for a qualifying SUI payment.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, txDigest string, expectedSUI float64, receiver string) (bool, error)
}

// AlertSender delivers rendered alerts; the production implementation wraps
// the shared notifications package.
type AlertSender interface {
	SendGroupAlert(chatID int64, a alerts.Alert) error
	SendTrending(text string) error
	PublishLeaderboard(text string) error
}

// BuySource is a source of new buy events: a poller or a stream, selected at
// startup. Run blocks until the context is cancelled.
type BuySource interface {
	Run(ctx context.Context)
}
