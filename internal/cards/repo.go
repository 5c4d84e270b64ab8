package cards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
)

// Repository persists masked card references. Only brand, last4, and holder
// name are ever stored; the PAN and token stay with the gateway.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, card *models.SavedCard) (*models.SavedCard, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedCard, error)
	Find(ctx context.Context, id uuid.UUID) (*models.SavedCard, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a saved-card repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, card *models.SavedCard) (*models.SavedCard, error) {
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return nil, err
	}
	return card, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedCard, error) {
	var cards []models.SavedCard
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.SavedCard, error) {
	var card models.SavedCard
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.SavedCard{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
