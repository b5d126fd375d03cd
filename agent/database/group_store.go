package database

import (
	"moonbags-buybot/agent/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupStore persists per-group alert settings.
type GroupStore struct {
	db *gorm.DB
}

func NewGroupStore(db *gorm.DB) *GroupStore {
	return &GroupStore{db: db}
}

// Save upserts a group's configuration, keyed on the chat group id.
func (s *GroupStore) Save(cfg *models.GroupConfig) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		UpdateAll: true,
	}).Create(cfg).Error
}

// Get returns the configuration for a group, or gorm.ErrRecordNotFound.
func (s *GroupStore) Get(groupID int64) (*models.GroupConfig, error) {
	var cfg models.GroupConfig
	if err := s.db.First(&cfg, "group_id = ?", groupID).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ForToken returns every group tracking the given coin type.
func (s *GroupStore) ForToken(tokenAddress string) ([]models.GroupConfig, error) {
	var groups []models.GroupConfig
	err := s.db.Where("token_address = ?", tokenAddress).Find(&groups).Error
	return groups, err
}

// TrackedTokens returns the distinct coin types any group is tracking.
func (s *GroupStore) TrackedTokens() ([]string, error) {
	var tokens []string
	err := s.db.Model(&models.GroupConfig{}).Distinct("token_address").Pluck("token_address", &tokens).Error
	return tokens, err
}

// Count returns the number of configured groups.
func (s *GroupStore) Count() (int64, error) {
	var n int64
	err := s.db.Model(&models.GroupConfig{}).Count(&n).Error
	return n, err
}
