package repository

import (
	"context"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository is the key/value store the admin surface writes
// credentials into. The service reads it once per config snapshot.
type SettingsRepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

type gormSettingsRepo struct {
	db *gorm.DB
}

func NewGormSettingsRepo(db *gorm.DB) SettingsRepository {
	return &gormSettingsRepo{db: db}
}

func (r *gormSettingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	var settings []models.Setting
	if err := r.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

func (r *gormSettingsRepo) Set(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}
