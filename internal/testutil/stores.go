package testutil

import (
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"path/filepath"
	"testing"
	"viewguard/internal/models"
	"viewguard/internal/providers"
	"viewguard/internal/structures"
)

// NewKeyStore starts an in-process redis server for the duration of the test.
func NewKeyStore(t *testing.T) (*providers.RedisKeyStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return providers.NewRedisKeyStore(client), mr
}

// NewDB opens a migrated sqlite database in the test's temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "viewguard.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(models.Entities()...); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get test db handle: %v", err)
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewConfig returns a config populated with the production defaults.
func NewConfig() *structures.Config {
	return &structures.Config{
		AppName:   "ViewGuard",
		Views:     withSalt(structures.DefaultViewsConfig()),
		Antifraud: structures.DefaultAntifraudConfig(),
		Alerts:    structures.DefaultAlertsConfig(),
		Logger:    structures.LoggerConfig{Level: "info", Mode: 0644, Dir: "/tmp"},
	}
}

const TestSalt = "test-view-salt"

func withSalt(v structures.ViewsConfig) structures.ViewsConfig {
	v.Salt = TestSalt
	return v
}
