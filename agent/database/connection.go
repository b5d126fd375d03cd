package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func ConnectToDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Printf("ERROR: Failed to connect to the database using DSN: %v", err)
		return nil, err
	}
	log.Println("INFO: Database connection successful.")
	return db, nil
}
