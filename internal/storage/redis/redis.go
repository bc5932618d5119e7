// Package redis keeps session slots in Redis with a sliding expiry.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/domain/cart"
)

const keyPrefix = "storefront:"

var _ cart.Storage = (*SlotStorage)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL is the idle lifetime of a session's slots. Zero disables expiry.
	TTL time.Duration
}

// SlotStorage implements cart.Storage on Redis strings.
type SlotStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*SlotStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", opts.Addr)
	}
	return &SlotStorage{client: client, ttl: opts.TTL}, nil
}

func slotKey(session, slot string) string {
	return keyPrefix + session + ":" + slot
}

// Load returns the slot value, or cart.ErrSlotEmpty.
func (s *SlotStorage) Load(ctx context.Context, session, slot string) ([]byte, error) {
	v, err := s.client.Get(ctx, slotKey(session, slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrSlotEmpty
		}
		return nil, errors.Wrapf(err, "get slot %s", slot)
	}
	return v, nil
}

// Save writes the slot value and restarts the session's expiry for both
// cart slots so they never outlive each other.
func (s *SlotStorage) Save(ctx context.Context, session, slot string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, slotKey(session, slot), value, s.ttl)
		if s.ttl > 0 {
			for _, other := range []string{cart.SlotItems, cart.SlotCoupon} {
				if other != slot {
					pipe.Expire(ctx, slotKey(session, other), s.ttl)
				}
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "set slot %s", slot)
	}
	return nil
}

// Delete removes the given slots.
func (s *SlotStorage) Delete(ctx context.Context, session string, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = slotKey(session, slot)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "delete slots")
	}
	return nil
}

// Ping checks the connection.
func (s *SlotStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (s *SlotStorage) Close() error {
	return s.client.Close()
}
