package controllers

import (
	"context"
	"fmt"
	json "github.com/goccy/go-json"
	"gorm.io/gorm"
	"net/http"
	"time"
	"viewguard/internal/providers"
)

const healthPingTimeout = 2 * time.Second

type HealthController struct {
	store     providers.KeyStoreInterface
	db        *gorm.DB
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	KeyStore      string  `json:"keystore"`
	Database      string  `json:"database"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		KeyStore:      "ok",
		Database:      "ok",
	}

	status := http.StatusOK
	if err := hc.store.Ping(ctx); err != nil {
		resp.KeyStore = "unavailable"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if err := hc.pingDB(ctx); err != nil {
		resp.Database = "unavailable"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (hc *HealthController) pingDB(ctx context.Context) error {
	sqlDB, err := hc.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(store providers.KeyStoreInterface, db *gorm.DB) *HealthController {
	return &HealthController{
		store:     store,
		db:        db,
		startTime: time.Now(),
	}
}
