package providers

import (
	"errors"
	"fmt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"os"
	"path/filepath"
	"time"
	"viewguard/internal/models"
	"viewguard/internal/structures"
)

// NewDatabaseProvider opens the relational store and migrates viewguard's
// tables. The returned cleanup closes the pool.
func NewDatabaseProvider(conf *structures.Config, log Logger) (*gorm.DB, func(), error) {
	dialector, err := dialectorFor(conf.Database)
	if err != nil {
		return nil, nil, err
	}

	gormLogLevel := logger.Silent
	if conf.Debug {
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(gormLogLevel)})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", conf.Database.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if conf.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	if conf.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(conf.Database.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(models.Entities()...); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Infof(TypeApp, "Database ready (%s)", conf.Database.Driver)

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			log.Errorf(TypeApp, "Failed to close database: %v", err)
		}
	}
	return db, cleanup, nil
}

func dialectorFor(conf structures.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "postgres":
		return postgres.Open(conf.DSN), nil
	case "sqlite":
		if err := ensureParentDir(conf.DSN); err != nil {
			return nil, err
		}
		return sqlite.Open(conf.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
