package models

import "time"

// GroupConfig holds one chat group's alert settings. One row per group; many
// groups may track the same token.
type GroupConfig struct {
	GroupID      int64     `gorm:"primaryKey"`          // Telegram chat id of the group
	TokenAddress string    `gorm:"index;not null"`      // Sui coin type (0x...::module::TYPE)
	TokenSymbol  string    `gorm:"not null"`            // Cached symbol for message headers
	MinBuyUSD    float64   `gorm:"not null"`            // Alert threshold
	Emoji        string    `gorm:"not null"`            // Intensity emoji
	EmojiStep    float64   `gorm:"not null"`            // USD value of one emoji
	Website      string    // Optional link row entries
	TelegramLink string
	TwitterLink  string
	ChartLink    string
	MediaID      string    // Telegram file id for alert media
	MediaKind    string    // "photo" or "animation"
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// BuyRecord is a single detected token purchase. TxDigest uniqueness is the
// dedupe boundary: a buy is dispatched at most once.
type BuyRecord struct {
	ID           uint      `gorm:"primaryKey"`
	TxDigest     string    `gorm:"uniqueIndex;not null"`
	TokenAddress string    `gorm:"index;not null"`
	BuyerAddress string    `gorm:"not null"`
	TokenAmount  float64   `gorm:"not null"` // Amount in the traded token
	UsdValue     float64   `gorm:"not null"`
	BlockTime    time.Time `gorm:"index;not null"`
}

// Boost is a paid visibility upgrade. At most one per token; expiry is
// filtered at read time, rows are never deleted.
type Boost struct {
	TokenAddress string    `gorm:"primaryKey"`
	ExpiresAt    time.Time `gorm:"not null"`
}

// BoostPayment records every verified payment digest so the same transaction
// cannot buy more than one boost.
type BoostPayment struct {
	ID           uint      `gorm:"primaryKey"`
	TxDigest     string    `gorm:"uniqueIndex;not null"`
	TokenAddress string    `gorm:"not null"`
	PaidSUI      float64   `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TokenInfo is derived market data, fetched fresh per use. Not persisted.
type TokenInfo struct {
	Symbol       string
	Name         string
	PriceUSD     float64
	MarketCapUSD float64
	LiquidityUSD float64
	Change24hPct float64
	SuiPriceUSD  float64
}
