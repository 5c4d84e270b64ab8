package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/internal/cards"
	"github.com/resgatesabor/resgatesabor-backend/internal/catalog"
	"github.com/resgatesabor/resgatesabor-backend/internal/orders"
	"github.com/resgatesabor/resgatesabor-backend/pkg/config"
	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox/payloads"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagseguro"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pixqr"
)

// voucherRetries bounds UUID regeneration when a new order's display prefix
// would collide with another open order at the same establishment.
const voucherRetries = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gatewayClient interface {
	CreateCharge(ctx context.Context, params pagseguro.ChargeCreateParams) (*pagseguro.Charge, error)
}

type cardSaver interface {
	Save(ctx context.Context, tx *gorm.DB, input cards.SaveCardInput) (*models.SavedCard, error)
}

// Service builds payment intents: one parent intent, N child orders, one
// gateway charge carrying the full per-merchant split.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	MarkPaid(ctx context.Context, intentID uuid.UUID, paidAt time.Time) error
	GetIntent(ctx context.Context, intentID, userID uuid.UUID) (*CheckoutResult, error)
}

type service struct {
	catalogRepo   catalog.Repository
	ordersRepo    orders.Repository
	tx            txRunner
	gateway       gatewayClient
	cards         cardSaver
	outbox        outboxPublisher
	intentTTL     time.Duration
	voucherLength int
	now           func() time.Time
	newID         func() uuid.UUID
}

// NewService builds the checkout service.
func NewService(
	catalogRepo catalog.Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	gateway gatewayClient,
	cardSvc cardSaver,
	outboxSvc outboxPublisher,
	checkoutCfg config.CheckoutConfig,
	voucherCfg config.VoucherConfig,
) (Service, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if cardSvc == nil {
		return nil, fmt.Errorf("card service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	ttl := checkoutCfg.IntentTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	length := voucherCfg.PrefixLength
	if length <= 0 {
		length = orders.DefaultVoucherLength
	}
	return &service{
		catalogRepo:   catalogRepo,
		ordersRepo:    ordersRepo,
		tx:            tx,
		gateway:       gateway,
		cards:         cardSvc,
		outbox:        outboxSvc,
		intentTTL:     ttl,
		voucherLength: length,
		now:           time.Now,
		newID:         uuid.New,
	}, nil
}

type checkoutLine struct {
	bag models.Bag
	qty int
}

// Checkout reserves stock, creates the intent and its child orders, and opens
// a single gateway charge split across the participating merchants. All of it
// happens in one transaction: a gateway failure rolls back the orders and the
// stock decrements together.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	merged := make(map[uuid.UUID]int, len(input.Items))
	bagOrder := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if _, seen := merged[item.BagID]; !seen {
			bagOrder = append(bagOrder, item.BagID)
		}
		merged[item.BagID] += item.Quantity
	}

	now := s.now()
	var result *CheckoutResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		crepo := s.catalogRepo.WithTx(tx)
		orepo := s.ordersRepo.WithTx(tx)

		lines, err := s.reserveStock(ctx, crepo, bagOrder, merged, now)
		if err != nil {
			return err
		}

		byEstablishment := groupLines(lines)
		receivers, total, err := s.buildReceivers(ctx, crepo, byEstablishment)
		if err != nil {
			return err
		}

		intent := &models.PaymentIntent{
			ID:         s.newID(),
			UserID:     input.UserID,
			Method:     input.Method,
			Status:     enums.PaymentStatusAwaitingPayment,
			TotalCents: total,
		}
		if input.Method == enums.PaymentMethodPix {
			expires := now.Add(s.intentTTL)
			intent.ExpiresAt = &expires
		}
		if _, err := orepo.CreatePaymentIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
		}

		orderRows, err := s.buildOrders(ctx, orepo, intent, input, byEstablishment)
		if err != nil {
			return err
		}
		if err := orepo.CreateOrders(ctx, orderRows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create orders")
		}

		// The charge opens inside the transaction so a gateway failure
		// rolls back the reservation in one step. The reserved bag rows
		// stay locked for the duration of the call, so competing
		// checkouts of the same bag queue behind gateway latency.
		charge, err := s.openCharge(ctx, intent, input, receivers)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if charge.QRText != "" {
			intentQR := charge.QRText
			intent.QRText = &intentQR
			updates["qr_text"] = intentQR

			imageURL := charge.QRImageURL
			if imageURL == "" {
				if dataURL, qrErr := pixqr.EncodeDataURL(charge.QRText, 0); qrErr == nil {
					imageURL = dataURL
				}
			}
			if imageURL != "" {
				intent.QRImageURL = &imageURL
				updates["qr_image_url"] = imageURL
			}
		}
		if charge.PaidAt != nil {
			intent.Status = enums.PaymentStatusPaid
			intent.PaidAt = charge.PaidAt
			updates["status"] = enums.PaymentStatusPaid
			updates["paid_at"] = *charge.PaidAt
		}
		if len(updates) > 0 {
			if err := orepo.UpdatePaymentIntent(ctx, intent.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
			}
		}

		if input.SaveCard && input.Method == enums.PaymentMethodCard {
			_, err := s.cards.Save(ctx, tx, cards.SaveCardInput{
				UserID:     input.UserID,
				Brand:      input.CardBrand,
				Last4:      input.CardLast4,
				HolderName: input.CardHolderName,
			})
			if err != nil {
				return err
			}
		}

		if err := s.emitCreationEvents(ctx, tx, intent, orderRows); err != nil {
			return err
		}

		result = s.buildResult(intent, orderRows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) validateInput(input CheckoutInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range input.Items {
		if item.BagID == uuid.Nil || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "each line needs a bag id and positive quantity")
		}
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if input.Method == enums.PaymentMethodCard && input.CardToken == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "card token required")
	}
	if input.Method == enums.PaymentMethodSavedCard && input.SavedCardID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "saved card id required")
	}
	return nil
}

// reserveStock loads and validates every bag, then takes stock with the
// conditional decrement. Any line that cannot be fully served aborts the
// whole checkout with Unavailable.
func (s *service) reserveStock(ctx context.Context, crepo catalog.Repository, bagOrder []uuid.UUID, merged map[uuid.UUID]int, now time.Time) ([]checkoutLine, error) {
	bags, err := crepo.FindBags(ctx, bagOrder)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bags")
	}
	byID := make(map[uuid.UUID]models.Bag, len(bags))
	for _, bag := range bags {
		byID[bag.ID] = bag
	}

	lines := make([]checkoutLine, 0, len(bagOrder))
	for _, bagID := range bagOrder {
		qty := merged[bagID]
		bag, found := byID[bagID]
		if !found || !bag.IsActive || now.After(bag.PickupEnd) {
			return nil, unavailable(bagID)
		}
		won, err := crepo.DecrementQuantity(ctx, bagID, qty)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
		if !won {
			return nil, unavailable(bagID)
		}
		lines = append(lines, checkoutLine{bag: bag, qty: qty})
	}
	return lines, nil
}

func unavailable(bagID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeUnavailable, "bag is no longer available").
		WithDetails(map[string]any{"bag_id": bagID.String()})
}

func groupLines(lines []checkoutLine) map[uuid.UUID][]checkoutLine {
	grouped := make(map[uuid.UUID][]checkoutLine)
	for _, line := range lines {
		grouped[line.bag.EstablishmentID] = append(grouped[line.bag.EstablishmentID], line)
	}
	return grouped
}

// buildReceivers computes the per-merchant split. The receiver amounts sum to
// the returned total by construction; the gateway adapter re-checks the sum.
func (s *service) buildReceivers(ctx context.Context, crepo catalog.Repository, grouped map[uuid.UUID][]checkoutLine) ([]pagseguro.SplitReceiver, int64, error) {
	ids := make([]uuid.UUID, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	receivers := make([]pagseguro.SplitReceiver, 0, len(ids))
	var total int64
	for _, establishmentID := range ids {
		est, err := crepo.FindEstablishment(ctx, establishmentID)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load establishment")
		}
		var subtotal int64
		for _, line := range grouped[establishmentID] {
			subtotal += line.bag.DiscountedPriceCents * int64(line.qty)
		}
		receivers = append(receivers, pagseguro.SplitReceiver{
			AccountID:   est.PagSeguroAccount,
			AmountCents: subtotal,
		})
		total += subtotal
	}
	return receivers, total, nil
}

// buildOrders generates the child orders. Each new order ID is re-checked
// against the merchant's open orders (and the batch built so far) so the
// display prefix stays unambiguous at the counter; on collision the UUID is
// regenerated a bounded number of times.
func (s *service) buildOrders(ctx context.Context, orepo orders.Repository, intent *models.PaymentIntent, input CheckoutInput, grouped map[uuid.UUID][]checkoutLine) ([]models.Order, error) {
	ids := make([]uuid.UUID, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var rows []models.Order
	for _, establishmentID := range ids {
		open, err := orepo.ListByEstablishmentAndStatus(ctx, establishmentID, []enums.OrderStatus{enums.OrderStatusPending})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open orders")
		}
		batch := make([]models.Order, 0)
		for _, row := range rows {
			if row.EstablishmentID == establishmentID {
				batch = append(batch, row)
			}
		}
		candidates := append(append([]models.Order{}, open...), batch...)

		for _, line := range grouped[establishmentID] {
			orderID, err := s.generateOrderID(candidates)
			if err != nil {
				return nil, err
			}
			row := models.Order{
				ID:              orderID,
				UserID:          input.UserID,
				BagID:           line.bag.ID,
				EstablishmentID: establishmentID,
				PaymentIntentID: intent.ID,
				Quantity:        line.qty,
				AmountCents:     line.bag.DiscountedPriceCents * int64(line.qty),
				Status:          enums.OrderStatusPending,
				PaymentMethod:   input.Method,
			}
			rows = append(rows, row)
			candidates = append(candidates, row)
		}
	}
	return rows, nil
}

func (s *service) generateOrderID(candidates []models.Order) (uuid.UUID, error) {
	for attempt := 0; attempt < voucherRetries; attempt++ {
		id := s.newID()
		if !orders.HasVoucherCollision(candidates, id, s.voucherLength) {
			return id, nil
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "could not generate a collision-free voucher")
}

func (s *service) openCharge(ctx context.Context, intent *models.PaymentIntent, input CheckoutInput, receivers []pagseguro.SplitReceiver) (*pagseguro.Charge, error) {
	params := pagseguro.ChargeCreateParams{
		ReferenceID:    intent.ID,
		Method:         string(input.Method),
		TotalCents:     intent.TotalCents,
		CardToken:      input.CardToken,
		SavedCardID:    input.SavedCardID,
		Receivers:      receivers,
		IdempotencyKey: "checkout-" + intent.ID.String(),
	}
	if intent.ExpiresAt != nil {
		params.ExpiresAt = *intent.ExpiresAt
	}
	charge, err := s.gateway.CreateCharge(ctx, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentIntentFailed, err, "gateway charge failed")
	}
	return charge, nil
}

func (s *service) emitCreationEvents(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent, rows []models.Order) error {
	orderIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.ID)
	}
	actor := &outbox.ActorRef{UserID: intent.UserID, Role: "customer"}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentIntentCreated,
		AggregateType: enums.AggregatePaymentIntent,
		AggregateID:   intent.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.PaymentIntentCreatedEvent{
			PaymentIntentID: intent.ID,
			UserID:          intent.UserID,
			Method:          intent.Method,
			TotalCents:      intent.TotalCents,
			OrderCount:      len(rows),
		},
	})
	if err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregatePaymentIntent,
		AggregateID:   intent.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderCreatedEvent{
			PaymentIntentID: intent.ID,
			OrderIDs:        orderIDs,
			UserID:          intent.UserID,
			TotalCents:      intent.TotalCents,
		},
	})
}

func (s *service) buildResult(intent *models.PaymentIntent, rows []models.Order) *CheckoutResult {
	result := &CheckoutResult{
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
		Method:          intent.Method,
		TotalCents:      intent.TotalCents,
		ExpiresAt:       intent.ExpiresAt,
	}
	if intent.QRText != nil {
		result.QRText = *intent.QRText
	}
	if intent.QRImageURL != nil {
		result.QRImageURL = *intent.QRImageURL
	}
	for _, row := range rows {
		result.Orders = append(result.Orders, orders.NewOrderView(row, s.voucherLength))
	}
	return result
}

// MarkPaid transitions an intent to paid exactly once. Replayed webhook
// deliveries find the conditional update already applied and return cleanly.
func (s *service) MarkPaid(ctx context.Context, intentID uuid.UUID, paidAt time.Time) error {
	if intentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orepo := s.ordersRepo.WithTx(tx)
		won, err := orepo.MarkIntentPaid(ctx, intentID, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark intent paid")
		}
		if !won {
			return nil
		}
		intent, err := orepo.FindPaymentIntent(ctx, intentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentIntentPaid,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   intentID,
			Version:       1,
			Data: payloads.PaymentIntentPaidEvent{
				PaymentIntentID: intentID,
				UserID:          intent.UserID,
				TotalCents:      intent.TotalCents,
				PaidAt:          paidAt,
			},
		})
	})
}

func (s *service) GetIntent(ctx context.Context, intentID, userID uuid.UUID) (*CheckoutResult, error) {
	if intentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	intent, err := s.ordersRepo.FindPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment intent not found")
	}
	if intent.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment intent does not belong to user")
	}
	rows, err := s.ordersRepo.FindOrdersByIntent(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
	}
	return s.buildResult(intent, rows), nil
}
