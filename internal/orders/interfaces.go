package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and payment intents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrders(ctx context.Context, orders []models.Order) error
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindPaymentIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindOrdersByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListByEstablishmentAndStatus(ctx context.Context, establishmentID uuid.UUID, statuses []enums.OrderStatus) ([]models.Order, error)
	FindExpirableIntents(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error)
	UpdatePaymentIntent(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// The transition helpers are single conditional UPDATEs; the boolean
	// reports whether this caller won the transition.
	CollectOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	ExpireOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	MarkIntentPaid(ctx context.Context, intentID uuid.UUID, at time.Time) (bool, error)
	MarkIntentExpired(ctx context.Context, intentID uuid.UUID) (bool, error)
}

// OrderList is one page of a user's orders plus the next cursor.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
