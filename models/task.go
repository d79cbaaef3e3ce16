package models

import "time"

// Task statuses. Anything else is rejected at the API boundary.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task represents a to-do item belonging to a user. Ownership is set at
// creation time and never changes.
type Task struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UserID    string    `gorm:"size:36;index;not null" json:"userId"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Status    string    `gorm:"size:20;not null;default:pending" json:"status"`
}

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
