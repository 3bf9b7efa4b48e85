// Package postgres persists code sequences through gorm on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

// Open connects to PostgreSQL with gorm's logger silenced
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// SequenceRepository locks the counter row with SELECT ... FOR UPDATE
// before incrementing it
type SequenceRepository struct {
	db *gorm.DB
}

var _ repositories.SequenceRepository = (*SequenceRepository)(nil)

// NewSequenceRepository migrates the sequence table
func NewSequenceRepository(db *gorm.DB) (*SequenceRepository, error) {
	if err := db.AutoMigrate(&entities.CodeSequence{}); err != nil {
		return nil, fmt.Errorf("failed to migrate code sequence: %w", err)
	}
	return &SequenceRepository{db: db}, nil
}

// NextValue increments and returns the counter for prefix
func (r *SequenceRepository) NextValue(ctx context.Context, prefix string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := entities.CodeSequence{Prefix: prefix}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
			return fmt.Errorf("failed to create sequence %s: %w", prefix, err)
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ?", prefix).
			First(&seq).Error; err != nil {
			return fmt.Errorf("failed to lock sequence %s: %w", prefix, err)
		}

		seq.LastValue++
		if err := tx.Model(&entities.CodeSequence{}).
			Where("prefix = ?", prefix).
			Update("last_value", seq.LastValue).Error; err != nil {
			return fmt.Errorf("failed to update sequence %s: %w", prefix, err)
		}
		value = seq.LastValue
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}
