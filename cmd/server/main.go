package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/config"
	"checkout-service/internal/api"
	"checkout-service/internal/bookingapi"
	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/pricing"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/util"
	"checkout-service/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.InitSchema(context.Background()); err != nil {
		logger.Fatal("Failed to initialize schema", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout)
	defer producer.Close()
	logger.Info("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	// status polls get their own, usually shorter, timeout inside the reconciler
	bookingClient := bookingapi.NewClient(cfg.BookingAPI.BaseURL, cfg.BookingAPI.RequestTimeout)

	fallbackPlans, err := pricing.ParsePlanTerms(cfg.Checkout.EmiFallbackPlans)
	if err != nil {
		logger.Fatal("Invalid EMI fallback plans", zap.Error(err))
	}
	advisor := pricing.NewAdvisor(bookingClient, redisClient, cfg.Checkout.EmiEligibilityMin, fallbackPlans, cfg.Checkout.EmiCacheTTL)

	policy := service.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Checkout.VerifyMaxAttempts
	policy.BaseDelay = cfg.Checkout.VerifyBackoffBase

	journal := service.NewCheckoutJournal(db)

	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Catalog:            bookingClient,
		Resolver:           service.NewResolver(cfg.Checkout.TicketCap),
		TripEngine:         pricing.NewEngine(models.CheckoutTrip, cfg.Checkout.EmiEligibilityMin),
		EventEngine:        pricing.NewEngine(models.CheckoutEvent, cfg.Checkout.EmiEligibilityMin),
		Advisor:            advisor,
		Orchestrator:       service.NewBookingOrchestrator(bookingClient, eventPublisher, cfg.Checkout.HalfPaymentPercent),
		Initiator:          service.NewPaymentInitiator(bookingClient, eventPublisher),
		Reconciler:         service.NewReconciler(bookingClient, eventPublisher, policy, cfg.BookingAPI.StatusTimeout),
		Journal:            journal,
		HalfPaymentPercent: cfg.Checkout.HalfPaymentPercent,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	journalConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout, cfg.Kafka.ConsumerGroup)
	journalWorker := worker.NewJournalWorker(journalConsumer, journal)
	go func() {
		if err := journalWorker.Start(workerCtx); err != nil {
			logger.Error("Journal worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "traceparent"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	handler := api.NewHandler(checkoutService, redisClient,
		map[string]api.Pinger{"database": db, "redis": redisClient},
		api.Options{IdempotencyTTL: cfg.Checkout.IdempotencyTTL, LockTTL: cfg.Checkout.CheckoutLockTTL})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := journalWorker.Stop(); err != nil {
		logger.Error("Failed to stop journal worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
