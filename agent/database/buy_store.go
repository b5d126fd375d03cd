package database

import (
	"time"

	"moonbags-buybot/agent/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuyStore persists detected buys. The unique index on tx_digest is the
// system's dedupe boundary.
type BuyStore struct {
	db *gorm.DB
}

func NewBuyStore(db *gorm.DB) *BuyStore {
	return &BuyStore{db: db}
}

// InsertIfNew inserts the record unless its digest was already stored.
// Returns true when the record is novel.
func (s *BuyStore) InsertIfNew(rec *models.BuyRecord) (bool, error) {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_digest"}},
		DoNothing: true,
	}).Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// VolumeSince sums usd_value per token for buys at or after the cutoff.
func (s *BuyStore) VolumeSince(cutoff time.Time) (map[string]float64, error) {
	type row struct {
		TokenAddress string
		Volume       float64
	}
	var rows []row
	err := s.db.Model(&models.BuyRecord{}).
		Select("token_address, SUM(usd_value) AS volume").
		Where("block_time >= ?", cutoff).
		Group("token_address").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	volumes := make(map[string]float64, len(rows))
	for _, r := range rows {
		volumes[r.TokenAddress] = r.Volume
	}
	return volumes, nil
}
