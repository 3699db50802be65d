package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/gateway"
	"github.com/coursepay/emi-engine/internal/handler"
	"github.com/coursepay/emi-engine/internal/notification"
	"github.com/coursepay/emi-engine/internal/repository"
	"github.com/coursepay/emi-engine/internal/service"
	"github.com/coursepay/emi-engine/pkg/logger"
	"github.com/coursepay/emi-engine/pkg/response"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	format := cfg.Logging.Format
	if cfg.IsDevelopment() {
		// Console output is easier to read during local development.
		format = "console"
	}

	zlog, err := logger.New(cfg.Logging.Level, format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := initDB(cfg)
	if err != nil {
		zlog.Fatal("initializing database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg); err != nil {
		zlog.Fatal("running migrations", zap.Error(err))
	}

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Repositories
	paymentRepo := repository.NewPaymentRepository(db)
	planRepo := repository.NewPlanRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	// Collaborators
	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		cfg.Gateway.WebhookSecret,
		cfg.GetGatewayTimeout(),
	)
	notifier := notification.NewDispatcher(zlog)

	// Services
	builder := service.NewScheduleBuilder(planRepo, enrollmentRepo, courseRepo, cfg, zlog)
	paymentService := service.NewPaymentService(paymentRepo, planRepo, enrollmentRepo, courseRepo, gatewayClient, cfg, zlog)
	reconciler := service.NewReconciler(paymentRepo, planRepo, enrollmentRepo, courseRepo, builder, gatewayClient, notifier, cfg, zlog)
	accessGate := service.NewAccessGate(paymentRepo, enrollmentRepo, planRepo)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentService, reconciler, zlog)
	webhookHandler := handler.NewWebhookHandler(reconciler, gatewayClient, zlog)
	accessHandler := handler.NewAccessHandler(accessGate)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	router := setupRoutes(cfg, paymentHandler, webhookHandler, accessHandler, healthHandler, zlog)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("forced shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.Database.MigrationDir, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	cfg *config.Config,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
	accessHandler *handler.AccessHandler,
	healthHandler *handler.HealthHandler,
	zlog *zap.Logger,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(zlog))
	if !cfg.IsProduction() {
		// Production fronts the API with a proxy that owns CORS.
		router.Use(response.CORSMiddleware)
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/payments", paymentHandler.CreatePayment).Methods("POST")
	api.HandleFunc("/payments/verify", paymentHandler.VerifyPayment).Methods("POST")
	api.HandleFunc("/webhooks/razorpay", webhookHandler.HandleRazorpay).Methods("POST")
	api.HandleFunc("/emi/settle", paymentHandler.SettleOverdue).Methods("POST")
	api.HandleFunc("/courses/{courseId}/emi", paymentHandler.GetCourseEMIDetails).Methods("GET")
	api.HandleFunc("/learners/{learnerId}/payments", paymentHandler.ListPayments).Methods("GET")
	api.HandleFunc("/learners/{learnerId}/courses/{courseId}/access", accessHandler.CheckAccess).Methods("GET")

	return router
}
