package main

import (
	"context"
	"log"
	"strings"

	"github.com/k0go07022003/StripeWoocommerce-Sync/cache"
	"github.com/k0go07022003/StripeWoocommerce-Sync/config"
	"github.com/k0go07022003/StripeWoocommerce-Sync/controllers"
	"github.com/k0go07022003/StripeWoocommerce-Sync/database"
	"github.com/k0go07022003/StripeWoocommerce-Sync/kafka"
	"github.com/k0go07022003/StripeWoocommerce-Sync/logger"
	awspkg "github.com/k0go07022003/StripeWoocommerce-Sync/pkg/aws"
	"github.com/k0go07022003/StripeWoocommerce-Sync/repository"
	"github.com/k0go07022003/StripeWoocommerce-Sync/routes"
	"github.com/k0go07022003/StripeWoocommerce-Sync/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}

	mappingStore := repository.NewGormMappingStore(db)
	settingsRepo := repository.NewGormSettingsRepo(db)
	ledgerRepo := repository.NewGormLedgerRepo(db)

	// rebuild produces a fresh immutable pipeline from the environment
	// plus admin-stored settings. Used at startup and on config reload.
	rebuild := func(ctx context.Context) (*controllers.Pipeline, error) {
		snapshot := config.Load()
		settings, err := settingsRepo.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return buildPipeline(ctx, snapshot.WithSettings(settings), mappingStore, ledgerRepo)
	}

	initial, err := rebuild(context.Background())
	if err != nil {
		logger.Log.Fatal("Failed to build pipeline", zap.Error(err))
	}
	if !initial.Configured() {
		logger.Log.Warn("Stripe/WooCommerce credentials missing, webhook will reject notifications until configured")
	}

	ct := controllers.NewController(initial, rebuild, mappingStore, settingsRepo)

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())
	routes.Register(r, ct)

	logger.Log.Info("Reconciliation service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed", zap.Error(err))
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config, mappingStore repository.MappingStore, ledgerRepo repository.LedgerRepository) (*controllers.Pipeline, error) {
	pipeline := &controllers.Pipeline{Cfg: cfg}
	if !cfg.StripeConfigured() || !cfg.WooConfigured() {
		return pipeline, nil
	}

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.LineItemPageSize, cfg.MaxPages)
	wooSvc := services.NewWooService(cfg.WooURL, cfg.WooConsumerKey, cfg.WooConsumerSecret, cfg.RequestTimeout)

	pipeline.Reconciler = services.NewReconciler(
		stripeSvc,
		stripeSvc,
		services.NewIdempotencyChecker(wooSvc, cfg.LookbackWindow, cfg.OrderPageSize, cfg.MaxPages),
		ledgerRepo,
		services.NewLineItemMapper(mappingStore, logger.Log),
		services.NewCustomerResolver(wooSvc),
		services.NewOrderSubmitter(wooSvc),
		wooSvc,
		logger.Log,
	)
	pipeline.StripeProducts = stripeSvc
	pipeline.WooProducts = wooSvc

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pipeline.Cache = cache.NewProductCache(rdb, cfg.ProductCacheTTL)
	}

	switch {
	case cfg.SNSTopicARN != "":
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		pipeline.Publisher = awspkg.NewOrderEventPublisher(awspkg.NewSNSClient(awsCfg), cfg.SNSTopicARN)
	case cfg.KafkaBrokers != "":
		pipeline.Publisher = kafka.NewReconcileEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
	}

	return pipeline, nil
}
