package kv

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;type:varchar(300)"`
	Value     []byte `gorm:"not null"`
	UpdatedAt int64
}

func (Entry) TableName() string {
	return "kv_entries"
}

// SQLStore keeps entries in a single table of whatever database gorm is connected to.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry := Entry{}
	result := s.db.WithContext(ctx).Where("entry_key = ?", key).Limit(1).Find(&entry)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	entry := Entry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().Unix(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&Entry{}, "entry_key = ?", key).Error
}
