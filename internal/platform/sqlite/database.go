package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Open opens the SQLite database at dsn and migrates the tasks schema.
// SQLite serializes writers, so the pool is limited to one connection;
// this also keeps an in-memory database alive for the pool's lifetime.
func Open(dsn string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}

	logLevel := gormlogger.Error
	if log.Enabled(context.Background(), slog.LevelDebug) {
		logLevel = gormlogger.Info
	}

	// gorm writes through the application's slog handler.
	gormLog := gormlogger.New(slog.NewLogLogger(log.Handler(), slog.LevelWarn), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlitedriver.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("sqlite database ready", slog.String("dsn", dsn))
	return db, nil
}

// Migrate creates or updates the tasks table and fills in the folded
// title of rows written before that column existed.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return fmt.Errorf("failed to migrate tasks table: %w", err)
	}

	var stale []taskRecord
	if err := db.Select("id", "title").Where("title_fold = ''").Find(&stale).Error; err != nil {
		return fmt.Errorf("failed to find tasks without folded title: %w", err)
	}
	for _, rec := range stale {
		err := db.Model(&taskRecord{}).
			Where("id = ?", rec.ID).
			Update("title_fold", foldTitle(rec.Title)).Error
		if err != nil {
			return fmt.Errorf("failed to fold title of task %d: %w", rec.ID, err)
		}
	}
	return nil
}
