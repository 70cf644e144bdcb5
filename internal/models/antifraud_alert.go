package models

import (
	"gorm.io/datatypes"
	"time"
)

const (
	AlertKindRejectionRateSpike = "REJECTION_RATE_SPIKE"

	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type AntifraudAlert struct {
	ID        uint           `gorm:"primaryKey"`
	Kind      string         `gorm:"size:64;index;not null"`
	Severity  string         `gorm:"size:16;not null"`
	Message   string         `gorm:"type:text"`
	Metadata  datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"index"`
}

func (AntifraudAlert) TableName() string {
	return "antifraud_alerts"
}
