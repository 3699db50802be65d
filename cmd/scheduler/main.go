package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/coursepay/emi-engine/internal/config"
	"github.com/coursepay/emi-engine/internal/notification"
	"github.com/coursepay/emi-engine/internal/repository"
	"github.com/coursepay/emi-engine/internal/service"
	customError "github.com/coursepay/emi-engine/pkg/errors"
	"github.com/coursepay/emi-engine/pkg/logger"
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
		format = "console"
	}

	zlog, err := logger.New(cfg.Logging.Level, format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		zlog.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	paymentRepo := repository.NewPaymentRepository(db)
	planRepo := repository.NewPlanRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	locker := service.NewRedisLocker(redisClient)
	notifier := notification.NewDispatcher(zlog)
	builder := service.NewScheduleBuilder(planRepo, enrollmentRepo, courseRepo, cfg, zlog)

	overdueSweeper := service.NewOverdueSweeper(planRepo, enrollmentRepo, locker, notifier, cfg, zlog)
	reminderSweeper := service.NewReminderSweeper(planRepo, locker, notifier, cfg, zlog)
	repairSweep := service.NewRepairSweep(paymentRepo, planRepo, enrollmentRepo, courseRepo, builder, locker, notifier, cfg, zlog)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zlog.Fatal("loading scheduler timezone", zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	if _, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		ctx := context.Background()
		runSweep(zlog, "overdue", func() error { return overdueSweeper.Run(ctx) })
		runSweep(zlog, "repair", func() error { return repairSweep.Run(ctx) })
	}); err != nil {
		zlog.Fatal("scheduling overdue sweep", zap.Error(err))
	}

	if _, err := c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		runSweep(zlog, "reminder", func() error { return reminderSweeper.Run(context.Background()) })
	}); err != nil {
		zlog.Fatal("scheduling reminder sweep", zap.Error(err))
	}

	c.Start()
	zlog.Info("scheduler started",
		zap.String("overdue_spec", cfg.Scheduler.OverdueSpec),
		zap.String("reminder_spec", cfg.Scheduler.ReminderSpec),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down scheduler")
	<-c.Stop().Done()
	zlog.Info("scheduler stopped")
}

// runSweep executes one sweep and classifies the outcome. A sweep skipped
// because another instance holds the lease is routine, not a failure.
func runSweep(zlog *zap.Logger, name string, run func() error) {
	start := time.Now()

	err := run()
	switch {
	case err == nil:
		zlog.Info("sweep finished",
			zap.String("sweep", name),
			zap.Duration("elapsed", time.Since(start)),
		)
	case errors.Is(err, customError.ErrSweepAlreadyRunning):
		zlog.Info("sweep skipped", zap.String("sweep", name))
	default:
		zlog.Error("sweep failed",
			zap.String("sweep", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
}
