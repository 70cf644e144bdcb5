package models

import "time"

// PromptViewEvent is one redemption attempt. Rows are append-only.
type PromptViewEvent struct {
	ID          uint      `gorm:"primaryKey"`
	PromptID    string    `gorm:"size:64;index;not null"`
	UserID      *string   `gorm:"size:64"`
	IPHash      *string   `gorm:"size:24"`
	UAHash      *string   `gorm:"size:24"`
	FPHash      *string   `gorm:"size:128"`
	ViewTokenID *string   `gorm:"size:64"`
	IsCounted   bool      `gorm:"not null;index"`
	Reason      *string   `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"index"`
}

func (PromptViewEvent) TableName() string {
	return "prompt_view_events"
}
