package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/logger"
)

var testCoinType = "0x" + strings.Repeat("a", 64) + "::moon::MOON"

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeGroups struct {
	groups []models.GroupConfig
}

func (f *fakeGroups) ForToken(tokenAddress string) ([]models.GroupConfig, error) {
	var out []models.GroupConfig
	for _, g := range f.groups {
		if g.TokenAddress == tokenAddress {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroups) TrackedTokens() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range f.groups {
		if _, ok := seen[g.TokenAddress]; !ok {
			seen[g.TokenAddress] = struct{}{}
			out = append(out, g.TokenAddress)
		}
	}
	return out, nil
}

type fakeBuys struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	volumes map[string]float64
}

func newFakeBuys() *fakeBuys {
	return &fakeBuys{seen: make(map[string]struct{}), volumes: make(map[string]float64)}
}

func (f *fakeBuys) InsertIfNew(rec *models.BuyRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[rec.TxDigest]; ok {
		return false, nil
	}
	f.seen[rec.TxDigest] = struct{}{}
	f.volumes[rec.TokenAddress] += rec.UsdValue
	return true, nil
}

func (f *fakeBuys) VolumeSince(cutoff time.Time) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.volumes))
	for k, v := range f.volumes {
		out[k] = v
	}
	return out, nil
}

type fakeBoosts struct {
	expiries map[string]time.Time
}

func (f *fakeBoosts) IsActive(tokenAddress string, now time.Time) (bool, error) {
	exp, ok := f.expiries[tokenAddress]
	return ok && exp.After(now), nil
}

func (f *fakeBoosts) ActiveBoosts(now time.Time) ([]models.Boost, error) {
	var out []models.Boost
	for token, exp := range f.expiries {
		if exp.After(now) {
			out = append(out, models.Boost{TokenAddress: token, ExpiresAt: exp})
		}
	}
	return out, nil
}

type fakeMarket struct {
	info models.TokenInfo
	err  error
}

func (f *fakeMarket) TokenInfo(ctx context.Context, tokenAddress string) (models.TokenInfo, error) {
	if f.err != nil {
		return models.TokenInfo{}, f.err
	}
	return f.info, nil
}

type fakeSender struct {
	mu          sync.Mutex
	groupAlerts []int64
	trending    []string
	boards      []string
}

func (f *fakeSender) SendGroupAlert(chatID int64, a alerts.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupAlerts = append(f.groupAlerts, chatID)
	return nil
}

func (f *fakeSender) SendTrending(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trending = append(f.trending, text)
	return nil
}

func (f *fakeSender) PublishLeaderboard(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards = append(f.boards, text)
	return nil
}
