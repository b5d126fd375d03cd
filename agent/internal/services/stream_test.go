package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"moonbags-buybot/agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingIngestor struct {
	recs []models.BuyRecord
}

func (c *capturingIngestor) Ingest(ctx context.Context, rec models.BuyRecord) error {
	c.recs = append(c.recs, rec)
	return nil
}

func newTestStreamer(t *testing.T, tracked []models.GroupConfig, price float64) (*Streamer, *capturingIngestor) {
	t.Helper()
	ingestor := &capturingIngestor{}
	s := NewStreamer("ws://unused", nil,
		&fakeGroups{groups: tracked},
		&fakeMarket{info: models.TokenInfo{Symbol: "MOON", PriceUSD: price}},
		ingestor, newTestLogger(t))
	return s, ingestor
}

func swapEventFrame(coin, owner, sender, amount, timestampMs string) []byte {
	return []byte(fmt.Sprintf(`{
		"jsonrpc":"2.0","method":"suix_subscribeEvent",
		"params":{"subscription":1,"result":{
			"id":{"txDigest":"D1"},
			"sender":"%s",
			"timestampMs":"%s",
			"parsedJson":{"coin_out_address":"%s","owner":"%s","amount_out":"%s"}
		}}
	}`, sender, timestampMs, coin, owner, amount))
}

func TestStreamerIngestsTrackedSwap(t *testing.T) {
	tracked := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType}}
	s, ingestor := newTestStreamer(t, tracked, 0.5)

	s.handleMessage(context.Background(), swapEventFrame(testCoinType, "0xowner", "0xsender", "120.5", "1700000000000"))

	require.Len(t, ingestor.recs, 1)
	rec := ingestor.recs[0]
	assert.Equal(t, "D1", rec.TxDigest)
	assert.Equal(t, testCoinType, rec.TokenAddress)
	assert.Equal(t, "0xowner", rec.BuyerAddress)
	assert.Equal(t, 120.5, rec.TokenAmount)
	assert.InDelta(t, 60.25, rec.UsdValue, 1e-9, "USD priced from current token price")
	assert.Equal(t, time.UnixMilli(1700000000000), rec.BlockTime)
}

func TestStreamerFallsBackToEventSender(t *testing.T) {
	tracked := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType}}
	s, ingestor := newTestStreamer(t, tracked, 0.5)

	s.handleMessage(context.Background(), swapEventFrame(testCoinType, "", "0xsender", "10", "1700000000000"))

	require.Len(t, ingestor.recs, 1)
	assert.Equal(t, "0xsender", ingestor.recs[0].BuyerAddress)
}

func TestStreamerIgnoresUntrackedToken(t *testing.T) {
	s, ingestor := newTestStreamer(t, nil, 0.5)

	s.handleMessage(context.Background(), swapEventFrame(testCoinType, "0xowner", "0xsender", "10", "1700000000000"))

	assert.Empty(t, ingestor.recs)
}

func TestStreamerIgnoresNonPositiveAmounts(t *testing.T) {
	tracked := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType}}
	s, ingestor := newTestStreamer(t, tracked, 0.5)

	s.handleMessage(context.Background(), swapEventFrame(testCoinType, "0xowner", "0xsender", "0", "1700000000000"))
	s.handleMessage(context.Background(), swapEventFrame(testCoinType, "0xowner", "0xsender", "-5", "1700000000000"))
	s.handleMessage(context.Background(), swapEventFrame(testCoinType, "0xowner", "0xsender", "not-a-number", "1700000000000"))

	assert.Empty(t, ingestor.recs)
}

func TestStreamerIgnoresNonEventFrames(t *testing.T) {
	tracked := []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType}}
	s, ingestor := newTestStreamer(t, tracked, 0.5)

	// Subscription confirmation, malformed JSON, and an unrelated method.
	s.handleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"result":123}`))
	s.handleMessage(context.Background(), []byte(`{not json`))
	s.handleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"other","params":{}}`))

	assert.Empty(t, ingestor.recs)
}
