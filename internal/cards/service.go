package cards

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

// SaveCardInput carries the masked fields surfaced by the gateway response.
type SaveCardInput struct {
	UserID     uuid.UUID
	Brand      string
	Last4      string
	HolderName string
}

// Service manages a user's saved payment cards.
type Service interface {
	Save(ctx context.Context, tx *gorm.DB, input SaveCardInput) (*models.SavedCard, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.SavedCard, error)
	Remove(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a saved-card service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cards repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Save(ctx context.Context, tx *gorm.DB, input SaveCardInput) (*models.SavedCard, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Brand == "" || len(input.Last4) != 4 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card brand and last4 required")
	}
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	card := &models.SavedCard{
		UserID:     input.UserID,
		Brand:      input.Brand,
		Last4:      input.Last4,
		HolderName: input.HolderName,
	}
	created, err := repo.Create(ctx, card)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save card")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.SavedCard, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cards, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cards")
	}
	return cards, nil
}

func (s *service) Remove(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if id == uuid.Nil || userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "card id required")
	}
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete card")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
	}
	return nil
}
