package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"moonbags-buybot/agent/internal/models"

	"github.com/stretchr/testify/assert"
)

type scriptedFetcher struct {
	fail   bool
	sinces []time.Time
	buys   []models.BuyRecord
}

func (f *scriptedFetcher) RecentBuys(ctx context.Context, tokenAddress string, since time.Time) ([]models.BuyRecord, error) {
	f.sinces = append(f.sinces, since)
	if f.fail {
		return nil, fmt.Errorf("upstream down")
	}
	return f.buys, nil
}

type recordingIngestor struct {
	digests []string
}

func (r *recordingIngestor) Ingest(ctx context.Context, rec models.BuyRecord) error {
	r.digests = append(r.digests, rec.TxDigest)
	return nil
}

func TestPollerAdvancesCheckpointOnSuccess(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	buyTime := start.Add(30 * time.Second)
	fetcher := &scriptedFetcher{buys: []models.BuyRecord{{
		TxDigest: "d1", TokenAddress: testCoinType, BuyerAddress: "0xb",
		TokenAmount: 1, UsdValue: 10, BlockTime: buyTime,
	}}}
	ingestor := &recordingIngestor{}
	groups := &fakeGroups{groups: []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType}}}
	p := NewPoller(groups, fetcher, ingestor, time.Second, newTestLogger(t))

	p.tick(context.Background(), start)
	p.tick(context.Background(), start)

	assert.Equal(t, []string{"d1", "d1"}, ingestor.digests)
	assert.Equal(t, start, fetcher.sinces[0], "first poll starts at process start")
	assert.Equal(t, buyTime, fetcher.sinces[1], "checkpoint moves to latest observed buy")
}

func TestPollerKeepsCheckpointOnFailure(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	fetcher := &scriptedFetcher{fail: true}
	ingestor := &recordingIngestor{}
	groups := &fakeGroups{groups: []models.GroupConfig{{GroupID: 1, TokenAddress: testCoinType}}}
	p := NewPoller(groups, fetcher, ingestor, time.Second, newTestLogger(t))

	p.tick(context.Background(), start)
	p.tick(context.Background(), start)

	assert.Empty(t, ingestor.digests)
	assert.Equal(t, []time.Time{start, start}, fetcher.sinces, "failed fetch must not advance the checkpoint")
}

func TestPollerPrunesUntrackedCheckpoints(t *testing.T) {
	p := NewPoller(&fakeGroups{}, &scriptedFetcher{}, &recordingIngestor{}, time.Second, newTestLogger(t))
	p.checkpoints["0xgone::m::T"] = time.Now()

	p.tick(context.Background(), time.Now())

	assert.Empty(t, p.checkpoints)
}
