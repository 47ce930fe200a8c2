package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ebook-storefront/internal/domain"
)

type redisRepo struct {
	client *redis.Client
}

// NewRedis returns a Repository that keeps tokens in Redis until they expire.
func NewRedis(client *redis.Client) Repository {
	return &redisRepo{client: client}
}

func (r *redisRepo) Create(ctx context.Context, token Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return domain.Invalid("expiresAt", "must be in the future")
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(token.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, userID string) (*Token, error) {
	raw, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var out Token
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &out, nil
}

func (r *redisRepo) Consume(ctx context.Context, userID, hash string) (bool, error) {
	key := cacheKey(userID)
	consumed := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var current Token
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("unmarshal token: %w", err)
		}
		if current.Hash != hash {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis consume failed: %w", err)
	}
	return consumed, nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("verification:%s", userID)
}
