package db

import (
	"context"
	"time"

	"moltoverflow/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateLimitRepository persists sliding-window logs for the store-backed limiter.
type RateLimitRepository struct {
	db *gorm.DB
}

func NewRateLimitRepository(db *gorm.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// UpdateRecord runs fn against the fingerprint's row while holding its lock,
// so concurrent checks for one fingerprint serialize.
func (r *RateLimitRepository) UpdateRecord(ctx context.Context, fingerprint string, fn func(rec *domain.RateLimitRecord) error) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := RateLimitModel{Fingerprint: fingerprint, Timestamps: timeArray{}, UpdatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var model RateLimitModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("fingerprint = ?", fingerprint).First(&model).Error; err != nil {
			return err
		}
		rec := domain.RateLimitRecord{
			Fingerprint: model.Fingerprint,
			Timestamps:  []time.Time(model.Timestamps),
			UpdatedAt:   model.UpdatedAt,
		}
		if err := fn(&rec); err != nil {
			return err
		}
		return tx.Model(&RateLimitModel{}).Where("fingerprint = ?", fingerprint).Updates(map[string]any{
			"timestamps": timeArray(rec.Timestamps),
			"updated_at": rec.UpdatedAt,
		}).Error
	})
}

func (r *RateLimitRepository) DeleteStaleRecords(ctx context.Context, before time.Time) (int, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&RateLimitModel{})
	return int(res.RowsAffected), res.Error
}
