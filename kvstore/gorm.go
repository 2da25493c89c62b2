package kvstore

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry maps to the kv_entries table
type KVEntry struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(key string) (string, bool, error) {
	var entry KVEntry
	// Use Find instead of First to avoid "record not found" logs which are annoying for a KV store
	result := s.db.Where("key = ?", key).Limit(1).Find(&entry)
	if result.Error != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(key string, value string) error {
	entry := KVEntry{
		Key:   key,
		Value: value,
	}
	// Upsert
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry)

	if result.Error != nil {
		return fmt.Errorf("failed to write key %s: %w", key, result.Error)
	}
	return nil
}

func (s *GormStore) Delete(key string) error {
	result := s.db.Where("key = ?", key).Delete(&KVEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, result.Error)
	}
	return nil
}
