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

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrders(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&orders).Error
}

func (r *repository) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindPaymentIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) FindOrdersByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	list.Orders = rows
	return list, nil
}

func (r *repository) ListByEstablishmentAndStatus(ctx context.Context, establishmentID uuid.UUID, statuses []enums.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND status IN ?", establishmentID, statuses).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindExpirableIntents(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	var intents []models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", enums.PaymentStatusAwaitingPayment, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&intents).Error
	if err != nil {
		return nil, err
	}
	return intents, nil
}

func (r *repository) UpdatePaymentIntent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CollectOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":             enums.OrderStatusCollected,
			"merchant_confirmed": true,
			"collected_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CompleteOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusCollected).
		Updates(map[string]any{
			"status":             enums.OrderStatusCompleted,
			"customer_confirmed": true,
			"completed_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ExpireOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":     enums.OrderStatusExpired,
			"expired_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkIntentPaid(ctx context.Context, intentID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", intentID, enums.PaymentStatusAwaitingPayment).
		Updates(map[string]any{
			"status":  enums.PaymentStatusPaid,
			"paid_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkIntentExpired(ctx context.Context, intentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", intentID, enums.PaymentStatusAwaitingPayment).
		Update("status", enums.PaymentStatusExpired)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
