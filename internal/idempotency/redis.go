package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gift-auction/internal/auctionerrors"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "giftauction:idem:"

// RedisStore shares idempotency keys between processes. Reservation is a single SETNX.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore connects to addr and checks the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("idempotency: redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Reserve(ctx context.Context, key, hash string) (Record, error) {
	fresh, err := encode(Record{RequestHash: hash})
	if err != nil {
		return Record{}, err
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+key, fresh, s.ttl).Result()
	if err != nil {
		return Record{}, fmt.Errorf("idempotency: reserve %s: %w", key, err)
	}
	if ok {
		return Record{}, nil
	}

	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller can retry
		return Record{}, fmt.Errorf("idempotency: key %s: %w", key, auctionerrors.ErrIdempotencyConflict)
	}
	if err != nil {
		return Record{}, fmt.Errorf("idempotency: read %s: %w", key, err)
	}
	existing, err := decode(raw)
	if err != nil {
		return Record{}, fmt.Errorf("idempotency: key %s: %w", key, err)
	}
	return checkExisting(key, hash, existing)
}

func (s *RedisStore) Complete(ctx context.Context, key, bidID string) error {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return fmt.Errorf("idempotency: complete %s: %w", key, err)
	}
	rec, err := decode(raw)
	if err != nil {
		return fmt.Errorf("idempotency: complete %s: %w", key, err)
	}
	rec.BidID = bidID
	rec.Done = true
	val, err := encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: complete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encode(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("idempotency: encode: %w", err)
	}
	return b, nil
}

func decode(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("idempotency: decode: %w", err)
	}
	return rec, nil
}
