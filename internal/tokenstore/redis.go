package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/cache"
)

const tokenKeyPrefix = "confirm_token:"

// RedisStore keeps tokens in Redis with a native TTL, so expiry works across
// multiple API instances. The used flag is a separate SetNX marker, which makes
// Consume first-caller-wins without a cross-process lock.
type RedisStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewRedisStore(c *cache.RedisCache, ttl time.Duration) *RedisStore {
	return &RedisStore{
		cache: c,
		ttl:   ttl,
	}
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

func usedKey(token string) string {
	return tokenKeyPrefix + token + ":used"
}

func (s *RedisStore) Issue(ctx context.Context, phone string) (*models.ConfirmationToken, error) {
	token := &models.ConfirmationToken{
		Token:     utils.GenerateToken(),
		Phone:     phone,
		CreatedAt: time.Now(),
		Used:      false,
	}

	if err := s.cache.Set(ctx, tokenKey(token.Token), token, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store confirmation token: %w", err)
	}

	return token, nil
}

func (s *RedisStore) Validate(ctx context.Context, token string) (*Validation, error) {
	var t models.ConfirmationToken
	if err := s.cache.Get(ctx, tokenKey(token), &t); err != nil {
		if errors.Is(err, redis.Nil) {
			// Redis evicts expired keys itself, so a missing key covers both
			// the never-issued and the expired case.
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read confirmation token: %w", err)
	}

	now := time.Now()
	if t.Expired(s.ttl, now) {
		return nil, ErrTokenExpired
	}

	used, err := s.cache.Exists(ctx, usedKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to read token usage: %w", err)
	}

	return &Validation{
		Phone:     t.Phone,
		Used:      used,
		ExpiresIn: t.ExpiresIn(s.ttl, now),
	}, nil
}

func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	var t models.ConfirmationToken
	if err := s.cache.Get(ctx, tokenKey(token), &t); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read confirmation token: %w", err)
	}

	if t.Expired(s.ttl, time.Now()) {
		return "", ErrTokenExpired
	}

	// SetNX is the atomic claim: exactly one concurrent consumer sees true.
	won, err := s.cache.SetNX(ctx, usedKey(token), true, s.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to mark token used: %w", err)
	}
	if !won {
		return "", ErrTokenAlreadyUsed
	}

	return t.Phone, nil
}

// StartSweep is a no-op for the Redis backend: keys carry a native TTL and
// Redis evicts them on its own schedule.
func (s *RedisStore) StartSweep(ctx context.Context, interval time.Duration) {}
