package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var est models.Establishment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&est).Error
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *repository) FindEstablishmentByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Establishment, error) {
	var est models.Establishment
	err := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID).First(&est).Error
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *repository) FindBag(ctx context.Context, id uuid.UUID) (*models.Bag, error) {
	var bag models.Bag
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bag).Error
	if err != nil {
		return nil, err
	}
	return &bag, nil
}

func (r *repository) FindBags(ctx context.Context, ids []uuid.UUID) ([]models.Bag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var bags []models.Bag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&bags).Error
	if err != nil {
		return nil, err
	}
	return bags, nil
}

func (r *repository) ListActiveBags(ctx context.Context, establishmentID uuid.UUID) ([]models.Bag, error) {
	var bags []models.Bag
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND is_active = ?", establishmentID, true).
		Order("created_at DESC").
		Find(&bags).Error
	if err != nil {
		return nil, err
	}
	return bags, nil
}

func (r *repository) CreateBag(ctx context.Context, bag *models.Bag) (*models.Bag, error) {
	if err := r.db.WithContext(ctx).Create(bag).Error; err != nil {
		return nil, err
	}
	return bag, nil
}

func (r *repository) UpdateBag(ctx context.Context, bagID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Bag{}).
		Where("id = ?", bagID).
		Updates(updates).Error
}

func (r *repository) UpdateEstablishment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Establishment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DecrementQuantity is the only write path that takes stock. The WHERE guard
// makes concurrent buyers race on the row update itself; losers see
// RowsAffected == 0 and must surface Unavailable, never oversell.
func (r *repository) DecrementQuantity(ctx context.Context, bagID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Bag{}).
		Where("id = ? AND quantity >= ?", bagID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) RestoreQuantity(ctx context.Context, bagID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Bag{}).
		Where("id = ?", bagID).
		Update("quantity", gorm.Expr("quantity + ?", qty)).Error
}
