package services

import (
	"context"
	"fmt"
	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"time"
	"viewguard/internal/models"
	"viewguard/internal/providers"
	"viewguard/internal/structures"
)

const criticalRejectionRatio = 0.8

type AlertServiceInterface interface {
	CheckRejectionRate(ctx context.Context, now time.Time) (*models.AntifraudAlert, error)
}

type AlertService struct {
	conf    structures.AlertsConfig
	db      *gorm.DB
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewAlertService(conf *structures.Config, db *gorm.DB, logger providers.Logger, metrics providers.MetricsProviderInterface) *AlertService {
	return &AlertService{conf: conf.Alerts, db: db, logger: logger, metrics: metrics}
}

type rejectionStats struct {
	Total     int64   `json:"total"`
	Rejected  int64   `json:"rejected"`
	Ratio     float64 `json:"ratio"`
	TopReason string  `json:"topReason,omitempty"`
	Window    string  `json:"window"`
}

// CheckRejectionRate raises a REJECTION_RATE_SPIKE alert when too many view
// attempts in the trailing window were rejected. At most one alert of the kind
// is written per window. Returns nil when nothing was raised.
func (s *AlertService) CheckRejectionRate(ctx context.Context, now time.Time) (*models.AntifraudAlert, error) {
	from := now.UTC().Add(-s.conf.Window)
	db := s.db.WithContext(ctx)

	var stats rejectionStats
	if err := db.Model(&models.PromptViewEvent{}).Where("created_at >= ?", from).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if stats.Total == 0 || stats.Total < s.conf.MinEvents {
		return nil, nil
	}
	if err := db.Model(&models.PromptViewEvent{}).Where("created_at >= ? AND is_counted = ?", from, false).Count(&stats.Rejected).Error; err != nil {
		return nil, err
	}

	stats.Ratio = float64(stats.Rejected) / float64(stats.Total)
	if stats.Ratio < s.conf.RejectionRatio {
		return nil, nil
	}

	var recent int64
	if err := db.Model(&models.AntifraudAlert{}).
		Where("kind = ? AND created_at >= ?", models.AlertKindRejectionRateSpike, from).
		Count(&recent).Error; err != nil {
		return nil, err
	}
	if recent > 0 {
		return nil, nil
	}

	var top struct {
		Reason string
		N      int64
	}
	if err := db.Model(&models.PromptViewEvent{}).
		Select("reason, COUNT(*) AS n").
		Where("created_at >= ? AND is_counted = ?", from, false).
		Group("reason").
		Order("n DESC").
		Limit(1).
		Scan(&top).Error; err != nil {
		return nil, err
	}
	stats.TopReason = top.Reason
	stats.Window = s.conf.Window.String()

	meta, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}

	severity := models.SeverityWarning
	if stats.Ratio >= criticalRejectionRatio {
		severity = models.SeverityCritical
	}

	alert := models.AntifraudAlert{
		Kind:      models.AlertKindRejectionRateSpike,
		Severity:  severity,
		Message:   fmt.Sprintf("%d of %d view attempts rejected in the last %s (%.0f%%)", stats.Rejected, stats.Total, s.conf.Window, stats.Ratio*100),
		Metadata:  datatypes.JSON(meta),
		CreatedAt: now.UTC(),
	}
	if err := db.Create(&alert).Error; err != nil {
		return nil, err
	}

	s.metrics.IncAntifraudAlert(alert.Kind)
	s.logger.Warnf(providers.TypeFraud, "Anti-fraud alert: %s", alert.Message)
	return &alert, nil
}
