package database

import (
	"database/sql"
	"log"

	"moonbags-buybot/agent/internal/models"

	_ "github.com/lib/pq"
	"gorm.io/gorm"
)

// MigrateDatabase handles schema migrations using GORM's AutoMigrate with raw
// SQL as a fallback, so a fresh database comes up even if AutoMigrate trips on
// an existing column.
func MigrateDatabase(db *gorm.DB, dsn string) {
	log.Println("Running GORM migrations...")
	err := db.AutoMigrate(
		&models.GroupConfig{},
		&models.BuyRecord{},
		&models.Boost{},
		&models.BoostPayment{},
	)
	if err != nil {
		log.Fatalf("Failed to perform GORM migrations: %v", err)
	}
	log.Println("GORM migrations executed successfully.")

	dbSQL, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to connect to the database with SQL: %v", err)
	}
	defer dbSQL.Close()

	executeSQLMigrations(dbSQL)
}

func executeSQLMigrations(db *sql.DB) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS group_configs (
            group_id BIGINT PRIMARY KEY,
            token_address TEXT NOT NULL,
            token_symbol TEXT NOT NULL,
            min_buy_usd DOUBLE PRECISION NOT NULL,
            emoji TEXT NOT NULL,
            emoji_step DOUBLE PRECISION NOT NULL,
            website TEXT,
            telegram_link TEXT,
            twitter_link TEXT,
            chart_link TEXT,
            media_id TEXT,
            media_kind TEXT,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_group_configs_token_address ON group_configs (token_address);`,
		`CREATE TABLE IF NOT EXISTS buy_records (
            id SERIAL PRIMARY KEY,
            tx_digest TEXT UNIQUE NOT NULL,
            token_address TEXT NOT NULL,
            buyer_address TEXT NOT NULL,
            token_amount DOUBLE PRECISION NOT NULL,
            usd_value DOUBLE PRECISION NOT NULL,
            block_time TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_buy_records_token_address ON buy_records (token_address);`,
		`CREATE INDEX IF NOT EXISTS idx_buy_records_block_time ON buy_records (block_time);`,
		`CREATE TABLE IF NOT EXISTS boosts (
            token_address TEXT PRIMARY KEY,
            expires_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS boost_payments (
            id SERIAL PRIMARY KEY,
            tx_digest TEXT UNIQUE NOT NULL,
            token_address TEXT NOT NULL,
            paid_sui DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        );`,
	}

	for _, query := range queries {
		_, err := db.Exec(query)
		if err != nil {
			log.Fatalf("Failed to execute query: %s, error: %v", query, err)
		}
	}
	log.Println("Raw SQL migrations executed successfully.")
}
