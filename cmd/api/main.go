package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/resgatesabor/resgatesabor-backend/api/routes"
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
	"github.com/resgatesabor/resgatesabor-backend/pkg/instance"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/migrate"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagseguro"
	"github.com/resgatesabor/resgatesabor-backend/pkg/redis"
)

const webhookGuardScope = "webhook:pagseguro"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := pagseguro.NewClient(context.Background(), cfg.PagSeguro, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pagseguro client", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, dbClient, redisClient, gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(
	cfg *config.Config,
	dbClient *db.Client,
	redisClient *redis.Client,
	gateway *pagseguro.Client,
	logg *logger.Logger,
) (routes.Services, error) {
	gormDB := dbClient.DB()

	catalogRepo := catalog.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cart.NewService(catalogRepo, cfg.Checkout.MaxItemsPerCart)
	if err != nil {
		return routes.Services{}, err
	}

	cardsService, err := cards.NewService(cards.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	checkoutService, err := checkoutsvc.NewService(
		catalogRepo,
		ordersRepo,
		dbClient,
		gateway,
		cardsService,
		outboxSvc,
		cfg.Checkout,
		cfg.Voucher,
	)
	if err != nil {
		return routes.Services{}, err
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxSvc, cfg.Voucher.PrefixLength)
	if err != nil {
		return routes.Services{}, err
	}

	boostsService, err := boosts.NewService(boosts.NewRepository(gormDB), catalogRepo, dbClient, outboxSvc)
	if err != nil {
		return routes.Services{}, err
	}

	reviewsService, err := reviews.NewService(reviews.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc)
	if err != nil {
		return routes.Services{}, err
	}

	settlementService, err := settlement.NewService(settlement.NewRepository(gormDB), cfg.Settlement.CommissionRate)
	if err != nil {
		return routes.Services{}, err
	}

	webhookService, err := pagsegurowebhook.NewService(pagsegurowebhook.ServiceParams{Checkout: checkoutService})
	if err != nil {
		return routes.Services{}, err
	}

	webhookGuard, err := pagsegurowebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.IdempotencyTTL, webhookGuardScope)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Cart:         cartService,
		Checkout:     checkoutService,
		Orders:       ordersService,
		Catalog:      catalogService,
		Boosts:       boostsService,
		Reviews:      reviewsService,
		Cards:        cardsService,
		Settlement:   settlementService,
		Webhook:      webhookService,
		WebhookGuard: webhookGuard,
		Gateway:      gateway,
	}, nil
}
