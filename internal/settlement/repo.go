package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// MerchantVolume is one merchant's completed-order volume in a window.
type MerchantVolume struct {
	EstablishmentID uuid.UUID
	GrossCents      int64
	OrderCount      int64
}

// MerchantBoost is one merchant's boost spend in a window.
type MerchantBoost struct {
	EstablishmentID uuid.UUID
	BoostCents      int64
	BoostCount      int64
}

// Repository aggregates settlement inputs from the ledger tables.
type Repository interface {
	CompletedVolumeByMerchant(ctx context.Context, from, to time.Time) ([]MerchantVolume, error)
	BoostSpendByMerchant(ctx context.Context, from, to time.Time) ([]MerchantBoost, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CompletedVolumeByMerchant sums real completed orders; volume is never
// estimated or backfilled from anywhere else.
func (r *repository) CompletedVolumeByMerchant(ctx context.Context, from, to time.Time) ([]MerchantVolume, error) {
	var rows []MerchantVolume
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("establishment_id, COALESCE(SUM(amount_cents), 0) AS gross_cents, COUNT(*) AS order_count").
		Where("status = ? AND completed_at >= ? AND completed_at < ?", enums.OrderStatusCompleted, from, to).
		Group("establishment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) BoostSpendByMerchant(ctx context.Context, from, to time.Time) ([]MerchantBoost, error) {
	var rows []MerchantBoost
	err := r.db.WithContext(ctx).
		Model(&models.BoostUsage{}).
		Select("establishment_id, COALESCE(SUM(fee_at_time_cents), 0) AS boost_cents, COUNT(*) AS boost_count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("establishment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
