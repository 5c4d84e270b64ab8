package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
)

// Repository defines persistence operations for establishments and bags.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
	FindEstablishmentByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Establishment, error)
	FindBag(ctx context.Context, id uuid.UUID) (*models.Bag, error)
	FindBags(ctx context.Context, ids []uuid.UUID) ([]models.Bag, error)
	ListActiveBags(ctx context.Context, establishmentID uuid.UUID) ([]models.Bag, error)
	CreateBag(ctx context.Context, bag *models.Bag) (*models.Bag, error)
	UpdateBag(ctx context.Context, bagID uuid.UUID, updates map[string]any) error
	UpdateEstablishment(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// DecrementQuantity reserves stock with a conditional update and reports
	// whether the reservation won. It never drives quantity below zero.
	DecrementQuantity(ctx context.Context, bagID uuid.UUID, qty int) (bool, error)
	// RestoreQuantity returns previously reserved stock.
	RestoreQuantity(ctx context.Context, bagID uuid.UUID, qty int) error
}
