package boosts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
)

// Repository manages persistence for boost usage records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, usage *models.BoostUsage) error
	ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]models.BoostUsage, error)
	SpendInWindow(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a boost repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, usage *models.BoostUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]models.BoostUsage, error) {
	var usages []models.BoostUsage
	if err := r.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("created_at DESC").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *repository) SpendInWindow(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.BoostUsage{}).
		Select("COALESCE(SUM(fee_at_time_cents), 0)").
		Where("establishment_id = ? AND created_at >= ? AND created_at < ?", establishmentID, from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
