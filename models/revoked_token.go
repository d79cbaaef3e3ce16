package models

import "time"

// RevokedToken stores a session token that was invalidated by logout.
// Rows are only meaningful for the token's own 24h lifetime; lookups ignore
// older rows and a background sweep deletes them.
type RevokedToken struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	Token     string `gorm:"size:512;not null;uniqueIndex"`
}
