package services

import (
	"context"
	"testing"
	"time"

	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuy(digest string, usd float64) models.BuyRecord {
	return models.BuyRecord{
		TxDigest:     digest,
		TokenAddress: testCoinType,
		BuyerAddress: "0xbuyer",
		TokenAmount:  100,
		UsdValue:     usd,
		BlockTime:    time.Now(),
	}
}

func newTestDispatcher(t *testing.T, groups []models.GroupConfig, boosts map[string]time.Time) (*Dispatcher, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	d := NewDispatcher(
		&fakeGroups{groups: groups},
		newFakeBuys(),
		&fakeBoosts{expiries: boosts},
		&fakeMarket{info: models.TokenInfo{Symbol: "MOON", PriceUSD: 0.5}},
		sender,
		alerts.LinkOptions{ExplorerURL: "https://suiscan.xyz/mainnet/tx"},
		200,
		newTestLogger(t),
	)
	return d, sender
}

func TestIngestDeduplicatesByDigest(t *testing.T) {
	groups := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType, Emoji: "🟢", EmojiStep: 5}}
	d, sender := newTestDispatcher(t, groups, nil)

	buy := testBuy("digest-1", 75)
	require.NoError(t, d.Ingest(context.Background(), buy))
	require.NoError(t, d.Ingest(context.Background(), buy))

	assert.Len(t, sender.groupAlerts, 1, "same digest must dispatch exactly once")
}

func TestIngestMinBuyThreshold(t *testing.T) {
	groups := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType, MinBuyUSD: 50, Emoji: "🟢", EmojiStep: 5}}
	d, sender := newTestDispatcher(t, groups, nil)

	require.NoError(t, d.Ingest(context.Background(), testBuy("below", 49.99)))
	assert.Empty(t, sender.groupAlerts, "buy below the group threshold must not alert")

	require.NoError(t, d.Ingest(context.Background(), testBuy("exact", 50.00)))
	assert.Equal(t, []int64{1}, sender.groupAlerts, "buy at exactly the threshold must alert")
}

func TestIngestFansOutToAllGroupsOverThreshold(t *testing.T) {
	groups := []models.GroupConfig{
		{GroupID: 1, TokenAddress: testCoinType, MinBuyUSD: 10, Emoji: "🟢", EmojiStep: 5},
		{GroupID: 2, TokenAddress: testCoinType, MinBuyUSD: 100, Emoji: "🔥", EmojiStep: 5},
	}
	d, sender := newTestDispatcher(t, groups, nil)

	require.NoError(t, d.Ingest(context.Background(), testBuy("mid", 60)))
	assert.Equal(t, []int64{1}, sender.groupAlerts)
}

func TestTrendingThreshold(t *testing.T) {
	d, sender := newTestDispatcher(t, nil, nil)

	require.NoError(t, d.Ingest(context.Background(), testBuy("small", 199.99)))
	assert.Empty(t, sender.trending)

	require.NoError(t, d.Ingest(context.Background(), testBuy("big", 200.00)))
	assert.Len(t, sender.trending, 1)
}

func TestActiveBoostForcesTrending(t *testing.T) {
	now := time.Now()
	boosts := map[string]time.Time{testCoinType: now.Add(time.Hour)}
	d, sender := newTestDispatcher(t, nil, boosts)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Ingest(context.Background(), testBuy("tiny", 5)))
	assert.Len(t, sender.trending, 1, "active boost waives the trending threshold")
}

func TestExpiredBoostIsInert(t *testing.T) {
	now := time.Now()
	boosts := map[string]time.Time{testCoinType: now.Add(-time.Minute)}
	d, sender := newTestDispatcher(t, nil, boosts)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Ingest(context.Background(), testBuy("tiny", 5)))
	assert.Empty(t, sender.trending, "expired boost must not force trending")
}

func TestIngestDropsMalformedRecords(t *testing.T) {
	groups := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType, Emoji: "🟢", EmojiStep: 5}}
	d, sender := newTestDispatcher(t, groups, nil)

	bad := testBuy("bad-token", 500)
	bad.TokenAddress = "not-a-coin-type"
	require.NoError(t, d.Ingest(context.Background(), bad))

	zeroAmount := testBuy("zero-amount", 500)
	zeroAmount.TokenAmount = 0
	require.NoError(t, d.Ingest(context.Background(), zeroAmount))

	noBuyer := testBuy("no-buyer", 500)
	noBuyer.BuyerAddress = ""
	require.NoError(t, d.Ingest(context.Background(), noBuyer))

	assert.Empty(t, sender.groupAlerts)
	assert.Empty(t, sender.trending)
}

func TestIngestSurvivesMarketDataOutage(t *testing.T) {
	groups := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType, Emoji: "🟢", EmojiStep: 5}}
	sender := &fakeSender{}
	d := NewDispatcher(
		&fakeGroups{groups: groups},
		newFakeBuys(),
		&fakeBoosts{},
		&fakeMarket{err: context.DeadlineExceeded},
		sender,
		alerts.LinkOptions{ExplorerURL: "https://suiscan.xyz/mainnet/tx"},
		200,
		newTestLogger(t),
	)

	require.NoError(t, d.Ingest(context.Background(), testBuy("no-market", 75)))
	assert.Len(t, sender.groupAlerts, 1, "alert still goes out with zeroed market fields")
}
