package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testCoinType = "0x" + strings.Repeat("a", 64) + "::moon::MOON"

type fakeGroupStore struct {
	saved map[int64]models.GroupConfig
}

func (f *fakeGroupStore) Save(cfg *models.GroupConfig) error {
	if f.saved == nil {
		f.saved = make(map[int64]models.GroupConfig)
	}
	f.saved[cfg.GroupID] = *cfg
	return nil
}

func (f *fakeGroupStore) Get(groupID int64) (*models.GroupConfig, error) {
	cfg, ok := f.saved[groupID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &cfg, nil
}

type fakeBoostLedger struct {
	payments  map[string]bool
	activated map[string]time.Time
}

func newFakeBoostLedger() *fakeBoostLedger {
	return &fakeBoostLedger{payments: make(map[string]bool), activated: make(map[string]time.Time)}
}

func (f *fakeBoostLedger) HasPayment(txDigest string) (bool, error) {
	return f.payments[txDigest], nil
}

func (f *fakeBoostLedger) RecordPayment(txDigest, tokenAddress string, paidSUI float64) error {
	f.payments[txDigest] = true
	return nil
}

func (f *fakeBoostLedger) Activate(tokenAddress string, expiresAt time.Time) error {
	f.activated[tokenAddress] = expiresAt
	return nil
}

type fakeVerifier struct {
	ok  bool
	err error
}

func (f *fakeVerifier) VerifyPayment(ctx context.Context, txDigest string, expectedSUI float64, receiver string) (bool, error) {
	return f.ok, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Boost.Tariffs = []config.BoostTariff{
		{Label: "4h", Seconds: 14400, PriceSUI: 15},
		{Label: "24h", Seconds: 86400, PriceSUI: 45},
	}
	return cfg
}

func newBoostTestBot(t *testing.T, ledger *fakeBoostLedger, verifier *fakeVerifier) (*Bot, *[]string) {
	t.Helper()
	var announced []string
	b := &Bot{
		groups:   &fakeGroupStore{saved: map[int64]models.GroupConfig{1: {GroupID: 1, TokenAddress: testCoinType, TokenSymbol: "MOON"}}},
		boosts:   ledger,
		verifier: verifier,
		sessions: NewSessionStore(30*time.Minute, newTestLogger(t)),
		cfg:      testConfig(),
		log:      newTestLogger(t),
		announce: func(text string) error {
			announced = append(announced, text)
			return nil
		},
	}
	return b, &announced
}

func testOrder() *BoostOrder {
	return &BoostOrder{
		TokenAddress: testCoinType,
		Tariff:       config.BoostTariff{Label: "4h", Seconds: 14400, PriceSUI: 15},
	}
}

func TestRedeemBoostActivates(t *testing.T) {
	ledger := newFakeBoostLedger()
	b, announced := newBoostTestBot(t, ledger, &fakeVerifier{ok: true})
	b.sessions.GetOrCreate(1)

	reply := b.redeemBoost(context.Background(), 1, testOrder(), "digest-1")

	assert.Contains(t, reply, "✅")
	expiry, ok := ledger.activated[testCoinType]
	require.True(t, ok, "boost row must be written")
	assert.WithinDuration(t, time.Now().Add(4*time.Hour), expiry, time.Minute)
	assert.True(t, ledger.payments["digest-1"], "payment digest must be recorded")
	require.Len(t, *announced, 1)
	assert.Contains(t, (*announced)[0], "BOOST ACTIVATED")
	assert.Contains(t, (*announced)[0], "MOON")
	assert.Nil(t, b.sessions.Get(1), "session closes after a successful redeem")
}

func TestRedeemBoostRejectsReusedDigest(t *testing.T) {
	ledger := newFakeBoostLedger()
	ledger.payments["digest-1"] = true
	b, announced := newBoostTestBot(t, ledger, &fakeVerifier{ok: true})

	reply := b.redeemBoost(context.Background(), 1, testOrder(), "digest-1")

	assert.Contains(t, reply, "already been used")
	assert.Empty(t, ledger.activated)
	assert.Empty(t, *announced)
}

func TestRedeemBoostRejectsUnconfirmedPayment(t *testing.T) {
	ledger := newFakeBoostLedger()
	b, announced := newBoostTestBot(t, ledger, &fakeVerifier{ok: false})

	reply := b.redeemBoost(context.Background(), 1, testOrder(), "digest-1")

	assert.Contains(t, reply, "not confirmed")
	assert.Empty(t, ledger.activated)
	assert.False(t, ledger.payments["digest-1"], "unverified payment must not be recorded")
	assert.Empty(t, *announced)
}

func TestRedeemBoostVerifierOutage(t *testing.T) {
	ledger := newFakeBoostLedger()
	b, _ := newBoostTestBot(t, ledger, &fakeVerifier{err: fmt.Errorf("rpc down")})

	reply := b.redeemBoost(context.Background(), 1, testOrder(), "digest-1")

	assert.Contains(t, reply, "try again")
	assert.Empty(t, ledger.activated)
}

func TestTariffKeyboardListsAllOptions(t *testing.T) {
	b, _ := newBoostTestBot(t, newFakeBoostLedger(), &fakeVerifier{})

	kb := b.tariffKeyboard()

	var labels []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
			assert.True(t, strings.HasPrefix(*btn.CallbackData, "boost:"))
		}
	}
	require.Len(t, labels, 2)
	assert.Equal(t, "4h - 15 SUI", labels[0])
	assert.Equal(t, "24h - 45 SUI", labels[1])
}
