package database

import (
	"errors"
	"time"

	"moonbags-buybot/agent/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BoostStore persists paid boosts and the payment digests that bought them.
type BoostStore struct {
	db *gorm.DB
}

func NewBoostStore(db *gorm.DB) *BoostStore {
	return &BoostStore{db: db}
}

// Activate upserts the boost row for a token. A repeat purchase replaces the
// expiry rather than stacking.
func (s *BoostStore) Activate(tokenAddress string, expiresAt time.Time) error {
	boost := models.Boost{TokenAddress: tokenAddress, ExpiresAt: expiresAt}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_address"}},
		UpdateAll: true,
	}).Create(&boost).Error
}

// IsActive reports whether the token has an unexpired boost.
func (s *BoostStore) IsActive(tokenAddress string, now time.Time) (bool, error) {
	var boost models.Boost
	err := s.db.First(&boost, "token_address = ?", tokenAddress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return boost.ExpiresAt.After(now), nil
}

// ActiveBoosts returns all boosts that have not yet expired.
func (s *BoostStore) ActiveBoosts(now time.Time) ([]models.Boost, error) {
	var boosts []models.Boost
	err := s.db.Where("expires_at > ?", now).Find(&boosts).Error
	return boosts, err
}

// ActiveCount returns the number of unexpired boosts.
func (s *BoostStore) ActiveCount(now time.Time) (int64, error) {
	var n int64
	err := s.db.Model(&models.Boost{}).Where("expires_at > ?", now).Count(&n).Error
	return n, err
}

// HasPayment reports whether a payment digest has already been redeemed.
func (s *BoostStore) HasPayment(txDigest string) (bool, error) {
	var n int64
	err := s.db.Model(&models.BoostPayment{}).Where("tx_digest = ?", txDigest).Count(&n).Error
	return n > 0, err
}

// RecordPayment stores a redeemed payment digest. The unique index on
// tx_digest backs up the HasPayment check under concurrent confirms.
func (s *BoostStore) RecordPayment(txDigest, tokenAddress string, paidSUI float64) error {
	payment := models.BoostPayment{
		TxDigest:     txDigest,
		TokenAddress: tokenAddress,
		PaidSUI:      paidSUI,
	}
	return s.db.Create(&payment).Error
}
