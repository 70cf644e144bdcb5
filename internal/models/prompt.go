package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

// Prompt is the content entity whose views are counted. Views is only ever
// incremented by the track-view flow.
type Prompt struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Content     string    `gorm:"type:text" json:"content"`
	AuthorID    string    `gorm:"size:64;index;not null" json:"authorId"`
	CategoryID  *string   `gorm:"size:36;index" json:"categoryId"`
	Views       int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Prompt) TableName() string {
	return "prompts"
}

func (p *Prompt) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
