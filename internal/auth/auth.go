// Package auth resolves opaque auth tokens to identities.
// Issuing tokens is exposed for seeding and tests; login and registration live elsewhere.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-chess-server/internal/domain"
)

// Memory is an in-process token table.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

// Add registers a fixed token, e.g. from configuration.
func (m *Memory) Add(token, username string) {
	token, username = strings.TrimSpace(token), strings.TrimSpace(username)
	if token == "" || username == "" {
		return
	}
	m.mu.Lock()
	m.tokens[token] = username
	m.mu.Unlock()
}

// Issue creates a random token for username.
func (m *Memory) Issue(ctx context.Context, username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("username required")
	}
	token := uuid.NewString()
	m.Add(token, username)
	return token, nil
}

func (m *Memory) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	m.mu.RLock()
	user, ok := m.tokens[strings.TrimSpace(token)]
	m.mu.RUnlock()
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return domain.Identity{Username: user, Token: token}, nil
}

func (m *Memory) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.tokens, strings.TrimSpace(token))
	m.mu.Unlock()
	return nil
}

func tokenKey(token string) string { return "chess:auth:" + strings.TrimSpace(token) }

// Redis stores tokens as chess:auth:<token> -> username.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps a client. ttl <= 0 issues tokens that never expire.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) expiry() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	return r.ttl
}

func (r *Redis) Add(ctx context.Context, token, username string) error {
	token, username = strings.TrimSpace(token), strings.TrimSpace(username)
	if token == "" || username == "" {
		return fmt.Errorf("token and username required")
	}
	return r.rdb.Set(ctx, tokenKey(token), username, r.expiry()).Err()
}

func (r *Redis) Issue(ctx context.Context, username string) (string, error) {
	token := uuid.NewString()
	if err := r.Add(ctx, token, username); err != nil {
		return "", err
	}
	return token, nil
}

func (r *Redis) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	user, err := r.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve token: %w", err)
	}
	return domain.Identity{Username: user, Token: token}, nil
}

func (r *Redis) Revoke(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, tokenKey(token)).Err()
}
