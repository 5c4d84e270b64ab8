package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/resgatesabor/resgatesabor-backend/api/controllers"
	webhookcontrollers "github.com/resgatesabor/resgatesabor-backend/api/controllers/webhooks"
	"github.com/resgatesabor/resgatesabor-backend/api/middleware"
	"github.com/resgatesabor/resgatesabor-backend/internal/boosts"
	"github.com/resgatesabor/resgatesabor-backend/internal/cards"
	"github.com/resgatesabor/resgatesabor-backend/internal/cart"
	"github.com/resgatesabor/resgatesabor-backend/internal/catalog"
	checkoutsvc "github.com/resgatesabor/resgatesabor-backend/internal/checkout"
	"github.com/resgatesabor/resgatesabor-backend/internal/orders"
	"github.com/resgatesabor/resgatesabor-backend/internal/reviews"
	"github.com/resgatesabor/resgatesabor-backend/internal/settlement"
	pagsegurowebhook "github.com/resgatesabor/resgatesabor-backend/internal/webhooks/pagseguro"
	"github.com/resgatesabor/resgatesabor-backend/pkg/config"
	"github.com/resgatesabor/resgatesabor-backend/pkg/db"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagseguro"
	"github.com/resgatesabor/resgatesabor-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Cart       cart.Service
	Checkout   checkoutsvc.Service
	Orders     orders.Service
	Catalog    catalog.Service
	Boosts     boosts.Service
	Reviews    reviews.Service
	Cards      cards.Service
	Settlement settlement.Service

	Webhook      *pagsegurowebhook.Service
	WebhookGuard *pagsegurowebhook.IdempotencyGuard
	Gateway      *pagseguro.Client
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	voucherLength := cfg.Voucher.PrefixLength

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/pagseguro", webhookcontrollers.PagSeguroWebhook(svcs.Webhook, svcs.Gateway, svcs.WebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyTTL, logg))

		// customer surface
		r.Group(func(r chi.Router) {
			r.Post("/v1/cart/quote", controllers.CartQuote(svcs.Cart, logg))
			r.Post("/v1/checkout", controllers.Checkout(svcs.Checkout, logg))
			r.Get("/v1/checkout/{intentId}", controllers.CheckoutIntent(svcs.Checkout, logg))
			r.Route("/v1/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(svcs.Orders, voucherLength, logg))
				r.Post("/{orderId}/confirm-pickup", controllers.ConfirmPickup(svcs.Orders, voucherLength, logg))
				r.Post("/{orderId}/review", controllers.SubmitReview(svcs.Reviews, logg))
			})
			r.Route("/v1/cards", func(r chi.Router) {
				r.Get("/", controllers.ListCards(svcs.Cards, logg))
				r.Delete("/{cardId}", controllers.RemoveCard(svcs.Cards, logg))
			})
		})

		r.With(
			middleware.RequireRole(string(enums.ActorRoleMerchant), logg),
			middleware.EstablishmentContext(logg),
		).Post("/v1/vouchers/redeem", controllers.RedeemVoucher(svcs.Orders, voucherLength, logg))

		// merchant surface
		r.Route("/v1/merchant", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleMerchant), logg))
			r.Use(middleware.EstablishmentContext(logg))

			r.Get("/orders", controllers.MerchantPendingOrders(svcs.Orders, voucherLength, logg))
			r.Route("/bags", func(r chi.Router) {
				r.Get("/", controllers.ListBags(svcs.Catalog, logg))
				r.Post("/", controllers.CreateBag(svcs.Catalog, logg))
				r.Patch("/{bagId}", controllers.UpdateBag(svcs.Catalog, logg))
				r.Post("/{bagId}/boost", controllers.BoostBag(svcs.Boosts, logg))
			})
			r.Post("/open", controllers.SetOpen(svcs.Catalog, logg))
			r.Get("/boosts", controllers.ListBoosts(svcs.Boosts, logg))
			r.Get("/reviews", controllers.MerchantReviews(svcs.Reviews, logg))
			r.Get("/settlement", controllers.MerchantSettlement(svcs.Settlement, logg))
		})

		// admin surface
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Get("/settlement", controllers.AdminSettlement(svcs.Settlement, logg))
		})
	})

	return r
}
