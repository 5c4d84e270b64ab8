package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/internal/catalog"
	"github.com/resgatesabor/resgatesabor-backend/internal/orders"
	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox/payloads"
)

const expiryBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type expirableIntentRepo interface {
	FindExpirableIntents(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error)
	FindOrdersByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Order, error)
	ExpireOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	MarkIntentExpired(ctx context.Context, intentID uuid.UUID) (bool, error)
}

type stockRestorer interface {
	RestoreQuantity(ctx context.Context, bagID uuid.UUID, qty int) error
}

type intentRepoFactory func(tx *gorm.DB) expirableIntentRepo

type stockRepoFactory func(tx *gorm.DB) stockRestorer

func defaultIntentRepo(tx *gorm.DB) expirableIntentRepo {
	return orders.NewRepository(tx)
}

func defaultStockRepo(tx *gorm.DB) stockRestorer {
	return catalog.NewRepository(tx)
}

// PixExpiryJobParams configure the pix expiry scheduler.
type PixExpiryJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Intents      expirableIntentRepo
	IntentsForTx intentRepoFactory
	StockForTx   stockRepoFactory
	Outbox       outboxEmitter
	BatchSize    int
}

// NewPixExpiryJob builds the cron job that expires unpaid pix intents and
// returns their reserved stock.
func NewPixExpiryJob(params PixExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	intentsForTx := params.IntentsForTx
	if intentsForTx == nil {
		intentsForTx = defaultIntentRepo
	}
	stockForTx := params.StockForTx
	if stockForTx == nil {
		stockForTx = defaultStockRepo
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = expiryBatchSize
	}
	return &pixExpiryJob{
		logg:         params.Logger,
		db:           params.DB,
		intents:      params.Intents,
		intentsForTx: intentsForTx,
		stockForTx:   stockForTx,
		outbox:       params.Outbox,
		batch:        batch,
		now:          time.Now,
	}, nil
}

type pixExpiryJob struct {
	logg         *logger.Logger
	db           txRunner
	intents      expirableIntentRepo
	intentsForTx intentRepoFactory
	stockForTx   stockRepoFactory
	outbox       outboxEmitter
	batch        int
	now          func() time.Time
}

func (j *pixExpiryJob) Name() string { return "pix-expiry" }

func (j *pixExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	intents, err := j.intents.FindExpirableIntents(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("query expirable intents: %w", err)
	}
	expired := 0
	var errs []error
	for _, intent := range intents {
		if err := j.expireIntent(ctx, intent, now); err != nil {
			// One stuck intent must not block the rest of the batch.
			errs = append(errs, fmt.Errorf("intent %s: %w", intent.ID, err))
			continue
		}
		expired++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired, "failed": len(errs)})
	j.logg.Info(logCtx, "pix expiry loop complete")
	return multierr.Combine(errs...)
}

// expireIntent moves one intent and its pending orders to expired inside a
// single transaction. ExpireOrder is a conditional update, so stock is
// restored only for the orders this worker actually flipped; a voucher
// redeemed mid-flight keeps its order and its stock.
func (j *pixExpiryJob) expireIntent(ctx context.Context, intent models.PaymentIntent, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.intentsForTx(tx)
		stock := j.stockForTx(tx)

		won, err := repo.MarkIntentExpired(ctx, intent.ID)
		if err != nil {
			return fmt.Errorf("mark intent expired: %w", err)
		}
		if !won {
			return nil
		}

		rows, err := repo.FindOrdersByIntent(ctx, intent.ID)
		if err != nil {
			return fmt.Errorf("load intent orders: %w", err)
		}
		for _, order := range rows {
			flipped, err := repo.ExpireOrder(ctx, order.ID, now)
			if err != nil {
				return fmt.Errorf("expire order: %w", err)
			}
			if !flipped {
				continue
			}
			if err := stock.RestoreQuantity(ctx, order.BagID, order.Quantity); err != nil {
				return fmt.Errorf("restore bag quantity: %w", err)
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				OccurredAt:    now,
				Data: payloads.OrderExpiredEvent{
					OrderID:          order.ID,
					EstablishmentID:  order.EstablishmentID,
					BagID:            order.BagID,
					RestoredQuantity: order.Quantity,
					ExpiredAt:        now,
				},
			}
			if err := j.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentIntentExpired,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   intent.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.PaymentIntentExpiredEvent{
				PaymentIntentID: intent.ID,
				UserID:          intent.UserID,
				ExpiredAt:       now,
			},
		})
	})
}
