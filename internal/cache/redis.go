package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avionda/skybooking/config"
	"github.com/avionda/skybooking/internal/domain"
)

// RedisCache holds read views of flights and bookings. Writers invalidate;
// versioned state in postgres stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func (c *RedisCache) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	data, err := c.client.Get(ctx, flightKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flight domain.Flight
	if err := json.Unmarshal(data, &flight); err != nil {
		return nil, err
	}
	return &flight, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, flight *domain.Flight) error {
	payload, err := json.Marshal(flight)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightKey(flight.ID), payload, c.ttl).Err()
}

func (c *RedisCache) InvalidateFlight(ctx context.Context, id int64) error {
	return c.client.Del(ctx, flightKey(id)).Err()
}

func (c *RedisCache) GetBookingByCode(ctx context.Context, code string) (*domain.Booking, error) {
	data, err := c.client.Get(ctx, bookingKey(code)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var booking domain.Booking
	if err := json.Unmarshal(data, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *RedisCache) SetBooking(ctx context.Context, booking *domain.Booking) error {
	payload, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookingKey(booking.BookingCode), payload, c.ttl).Err()
}

func (c *RedisCache) InvalidateBooking(ctx context.Context, code string) error {
	return c.client.Del(ctx, bookingKey(code)).Err()
}

func flightKey(id int64) string {
	return fmt.Sprintf("cache:flight:%d", id)
}

func bookingKey(code string) string {
	return fmt.Sprintf("cache:booking:%s", code)
}
