// Package sqlstore keeps collection blobs in a Postgres key/value table via GORM.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// blobRow is one persisted blob.
type blobRow struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:255"`
	Data      string `gorm:"column:data;type:text;not null"`
	UpdatedAt time.Time
}

func (blobRow) TableName() string { return "tada_blobs" }

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres with dsn and migrates the blob table.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := New(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return s, nil
}

// New uses an existing GORM handle and migrates the blob table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&blobRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var row blobRow
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select blob: %w", err)
	}
	return []byte(row.Data), true, nil
}

func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	row := blobRow{Key: key, Data: string(data), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
