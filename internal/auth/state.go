package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStateTTL bounds how long an OAuth redirect may take before the state
// token is treated as absent.
const DefaultStateTTL = 10 * time.Minute

// StateStore correlates an OAuth provider redirect with an optional internal
// account id. A nil account id marks a login flow, a non-nil one a linking
// flow. Tokens are single-use: absent, consumed and expired states are all
// reported as ErrStateInvalid so a caller cannot tell them apart.
type StateStore interface {
	Create(ctx context.Context, accountID *string) (string, error)
	Consume(ctx context.Context, token string) (*string, error)
}

func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MemoryStateStore keeps state entries in process memory. It is suitable for
// tests and single-instance deployments only; multi-instance deployments use
// RedisStateStore so a callback may land on any instance.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	ttl     time.Duration
	now     func() time.Time
}

type stateEntry struct {
	accountID *string
	expiresAt time.Time
}

// NewMemoryStateStore constructs an in-process store with the given TTL.
func NewMemoryStateStore(ttl time.Duration, opts ...MemoryStateOption) *MemoryStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	s := &MemoryStateStore{
		entries: make(map[string]stateEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MemoryStateOption configures MemoryStateStore.
type MemoryStateOption func(*MemoryStateStore)

// WithStateClock overrides the time source (useful for tests).
func WithStateClock(fn func() time.Time) MemoryStateOption {
	return func(s *MemoryStateStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

func (s *MemoryStateStore) Create(_ context.Context, accountID *string) (string, error) {
	token, err := newStateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.entries[token] = stateEntry{accountID: copyID(accountID), expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

func (s *MemoryStateStore) Consume(_ context.Context, token string) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return nil, ErrStateInvalid
	}
	delete(s.entries, token)
	if s.now().After(entry.expiresAt) {
		return nil, ErrStateInvalid
	}
	return entry.accountID, nil
}

// prune drops expired entries opportunistically; callers hold the lock.
func (s *MemoryStateStore) prune() {
	now := s.now()
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// RedisStateStore keeps state entries in a shared Redis instance so the OAuth
// protocol survives multiple server instances. Single-use is guaranteed by
// the atomic GETDEL, expiry by the key TTL.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type stateRecord struct {
	AccountID *string `json:"account_id"`
}

// NewRedisStateStore constructs a Redis-backed store with the given TTL.
func NewRedisStateStore(client redis.UniversalClient, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{client: client, prefix: "oauthstate:", ttl: ttl}
}

func (s *RedisStateStore) Create(ctx context.Context, accountID *string) (string, error) {
	token, err := newStateToken()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(stateRecord{AccountID: accountID})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+token, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store oauth state: %w", err)
	}
	return token, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, token string) (*string, error) {
	data, err := s.client.GetDel(ctx, s.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateInvalid
		}
		return nil, fmt.Errorf("auth: consume oauth state: %w", err)
	}
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrStateInvalid
	}
	return rec.AccountID, nil
}
