package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/avionda/skybooking/config"
	"github.com/avionda/skybooking/internal/cache"
	"github.com/avionda/skybooking/internal/kafka"
	"github.com/avionda/skybooking/internal/logger"
	"github.com/avionda/skybooking/internal/notify"
	"github.com/avionda/skybooking/internal/repository"
	"github.com/avionda/skybooking/internal/service/booking"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		zlog.Fatal("connect postgres", "error", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.CacheTTLSeconds)*time.Second)

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	passengerRepo := repository.NewPassengerRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		passengerRepo,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		zlog,
		booking.WithCache(redisCache),
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	notifier := notify.NewNotifier(notify.NewLogSender(zlog), zlog)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			return notifier.HandleBookingEvent(ctx, msg.Value)
		}); err != nil {
			zlog.Warn("consumer stopped", "error", err)
		}
	}()

	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	zlog.Info("worker started",
		"sweep_minutes", cfg.Worker.ExpirationSweepMinutes,
		"notifications_topic", cfg.Kafka.NotificationsTopic)

	for {
		select {
		case <-expireTicker.C:
			if _, err := bookingService.ExpireDraftBookings(ctx); err != nil {
				zlog.Error("expire sweep failed", "error", err)
			}
		case s := <-sig:
			zlog.Info("shutting down", "signal", s.String())
			return
		}
	}
}
