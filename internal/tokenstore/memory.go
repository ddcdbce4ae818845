package tokenstore

import (
	"context"
	"sync"
	"time"

	"swasthsuraksha/internal/models"
	"swasthsuraksha/internal/utils"
	"swasthsuraksha/pkg/logger"
)

// MemoryStore keeps tokens in an in-process map guarded by a mutex. Suitable
// for a single-instance deployment; RedisStore is the multi-instance sibling.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.ConfirmationToken
	ttl    time.Duration
	log    *logger.Logger

	// now is swappable for expiry tests
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration, log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*models.ConfirmationToken),
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

func (s *MemoryStore) Issue(ctx context.Context, phone string) (*models.ConfirmationToken, error) {
	token := &models.ConfirmationToken{
		Token:     utils.GenerateToken(),
		Phone:     phone,
		CreatedAt: s.now(),
		Used:      false,
	}

	s.mu.Lock()
	s.tokens[token.Token] = token
	s.mu.Unlock()

	return token, nil
}

func (s *MemoryStore) Validate(ctx context.Context, token string) (*Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}

	now := s.now()
	if t.Expired(s.ttl, now) {
		return nil, ErrTokenExpired
	}

	return &Validation{
		Phone:     t.Phone,
		Used:      t.Used,
		ExpiresIn: t.ExpiresIn(s.ttl, now),
	}, nil
}

func (s *MemoryStore) Consume(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return "", ErrTokenNotFound
	}

	if t.Expired(s.ttl, s.now()) {
		return "", ErrTokenExpired
	}

	if t.Used {
		return "", ErrTokenAlreadyUsed
	}

	t.Used = true
	return t.Phone, nil
}

func (s *MemoryStore) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for key, t := range s.tokens {
		if t.Expired(s.ttl, now) {
			delete(s.tokens, key)
			removed++
		}
	}
	remaining := len(s.tokens)
	s.mu.Unlock()

	if removed > 0 && s.log != nil {
		s.log.WithFields(map[string]interface{}{
			"removed":   removed,
			"remaining": remaining,
		}).Debug("Swept expired confirmation tokens")
	}
}

// Len reports the number of stored tokens, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
