package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"libraryadmin/internal/apperrors"
)

// Store keeps short-lived single-use codes keyed by account.
type Store interface {
	Put(ctx context.Context, key, code string, ttl time.Duration) error
	// Consume deletes the code when it matches. A missing, expired or different code is a
	// validation error and leaves the stored code in place.
	Consume(ctx context.Context, key, code string) error
}

// Generate returns a random 6-digit code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

var errInvalid = apperrors.Validation("invalid or expired OTP")

// RedisStore relies on key TTLs for expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "otp:"}
}

func (s *RedisStore) Put(ctx context.Context, key, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, code, ttl).Err(); err != nil {
		return apperrors.Storage("store otp", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, key, code string) error {
	stored, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return errInvalid
	}
	if err != nil {
		return apperrors.Storage("load otp", err)
	}
	if code == "" || stored != code {
		return errInvalid
	}
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return apperrors.Storage("delete otp", err)
	}
	if n == 0 {
		// consumed concurrently
		return errInvalid
	}
	return nil
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an expiring map. Expired entries are dropped lazily and on Put.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]entry{}, now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, key, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = entry{code: code, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, key, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return errInvalid
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return errInvalid
	}
	if code == "" || e.code != code {
		return errInvalid
	}
	delete(s.entries, key)
	return nil
}
