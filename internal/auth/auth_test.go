package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-chess-server/internal/domain"
)

type resolver interface {
	Issue(ctx context.Context, username string) (string, error)
	Resolve(ctx context.Context, token string) (domain.Identity, error)
	Revoke(ctx context.Context, token string) error
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, time.Hour), mr
}

func TestIssueResolveRevoke(t *testing.T) {
	r, _ := newTestRedis(t)
	for name, a := range map[string]resolver{"memory": NewMemory(), "redis": r} {
		ctx := context.Background()
		tok, err := a.Issue(ctx, "alice")
		if err != nil { t.Fatalf("%s: Issue: %v", name, err) }
		id, err := a.Resolve(ctx, tok)
		if err != nil || id.Username != "alice" { t.Fatalf("%s: Resolve = %+v, %v", name, id, err) }
		if err := a.Revoke(ctx, tok); err != nil { t.Fatalf("%s: Revoke: %v", name, err) }
		if _, err := a.Resolve(ctx, tok); !errors.Is(err, domain.ErrUnauthorized) { t.Fatalf("%s: revoked token resolved: %v", name, err) }
		if _, err := a.Resolve(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) { t.Fatalf("%s: empty token resolved: %v", name, err) }
	}
}

func TestRedisTokenExpires(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	tok, err := r.Issue(ctx, "bob")
	if err != nil { t.Fatalf("Issue: %v", err) }
	mr.FastForward(2 * time.Hour)
	if _, err := r.Resolve(ctx, tok); !errors.Is(err, domain.ErrUnauthorized) { t.Fatalf("expired token resolved: %v", err) }
}

func TestMemoryStaticTokens(t *testing.T) {
	m := NewMemory()
	m.Add("tok-1", "carol")
	m.Add("", "nobody")
	id, err := m.Resolve(context.Background(), " tok-1 ")
	if err != nil || id.Username != "carol" { t.Fatalf("Resolve = %+v, %v", id, err) }
}
