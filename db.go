package main

import (
	"log"
	"os"
	"strings"
	"time"

	"taskman/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	var err error
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		migrateDB()
	}
}

// migrateDB runs AutoMigrate per model so a failure on one doesn't block
// the others.
func migrateDB() {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Printf("migration warning (users): %v", err)
	}
	if err := db.AutoMigrate(&models.Task{}); err != nil {
		log.Printf("migration warning (tasks): %v", err)
	}
	if err := db.AutoMigrate(&models.RevokedToken{}); err != nil {
		log.Printf("migration warning (revoked_tokens): %v", err)
	}
}

// startBlacklistSweeper periodically deletes revoked tokens whose own 24h
// validity has lapsed. Lookups already ignore such rows, the sweep just
// keeps the table from growing.
func startBlacklistSweeper() {
	go func() {
		for {
			time.Sleep(time.Hour)
			if err := sweepRevokedTokens(); err != nil {
				log.Printf("blacklist sweep failed: %v", err)
			}
		}
	}()
}

func sweepRevokedTokens() error {
	cutoff := time.Now().Add(-sessionTTL)
	return db.Where("created_at < ?", cutoff).Delete(&models.RevokedToken{}).Error
}
