package store

import (
	"context"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sdm-scanner/internal/model"
)

// openORM opens a GORM SQLite connection with sane defaults.
func openORM(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// migrateORM ensures the schema for all models exists.
func migrateORM(db *gorm.DB) error {
	return db.AutoMigrate(&model.ScanSession{}, &model.Measurement{})
}

// closeORM closes the underlying SQL DB associated with the GORM connection.
func closeORM(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// insertSession persists a new scan session row.
func insertSession(ctx context.Context, db *gorm.DB, s *model.ScanSession) error {
	return db.WithContext(ctx).Create(s).Error
}

// insertMeasurements persists a batch of measurement rows.
func insertMeasurements(ctx context.Context, db *gorm.DB, ms []model.Measurement) error {
	if len(ms) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&ms).Error
}
