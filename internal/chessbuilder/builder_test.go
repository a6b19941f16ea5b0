package chessbuilder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-chess-server/internal/config"
	"github.com/park285/cheese-chess-server/internal/store"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		WSPath:           "/ws",
		CommandTimeout:   time.Second,
		WSSendQueue:      8,
		WSReadLimit:      8192,
		StoreBackend:     config.BackendMemory,
		AuthBackend:      config.BackendMemory,
		AuthStaticTokens: map[string]string{"tok-a": "alice"},
		SeedGames:        []string{"first:alice:bob", "second::"},
		ArchiveResults:   true,
	}
}

func TestNewMemoryBackends(t *testing.T) {
	ctx := context.Background()
	deps, err := New(ctx, baseConfig(), nil)
	if err != nil { t.Fatalf("New: %v", err) }
	defer deps.Close()

	games, err := deps.Games.ListGames(ctx)
	if err != nil { t.Fatalf("ListGames: %v", err) }
	if len(games) != 2 || games[0].WhiteUsername != "alice" || games[1].WhiteUsername != "" { t.Fatalf("unexpected seeds %+v", games) }
	who, err := deps.Auth.Resolve(ctx, "tok-a")
	if err != nil || who.Username != "alice" { t.Fatalf("Resolve: %+v %v", who, err) }
	if _, ok := deps.Archive.(*store.MemoryArchive); !ok { t.Fatalf("expected memory archive, got %T", deps.Archive) }
	if deps.Dispatcher == nil || deps.Server == nil || deps.Registry == nil { t.Fatalf("incomplete deps %+v", deps) }
}

func TestNewRedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.AuthBackend = config.BackendRedis
	cfg.RedisURL = fmt.Sprintf("redis://%s/0", mr.Addr())
	cfg.GameTTL = time.Hour
	cfg.AuthTokenTTL = time.Hour
	cfg.ArchiveResults = false

	ctx := context.Background()
	deps, err := New(ctx, cfg, nil)
	if err != nil { t.Fatalf("New: %v", err) }
	if _, ok := deps.Games.(*store.Redis); !ok { t.Fatalf("expected redis store, got %T", deps.Games) }
	if who, err := deps.Auth.Resolve(ctx, "tok-a"); err != nil || who.Username != "alice" { t.Fatalf("Resolve: %+v %v", who, err) }
	if deps.Archive != nil { t.Fatalf("archive should be off") }
	if !mr.Exists("chess:game:1") || !mr.Exists("chess:game:2") { t.Fatalf("seeds not written to redis") }
	if err := deps.Close(); err != nil { t.Fatalf("Close: %v", err) }

	// a second boot against the same data does not seed again
	deps, err = New(ctx, cfg, nil)
	if err != nil { t.Fatalf("New again: %v", err) }
	defer deps.Close()
	games, _ := deps.Games.ListGames(ctx)
	if len(games) != 2 { t.Fatalf("expected 2 games after restart, got %d", len(games)) }
}

func TestNewRedisUnreachable(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, cfg, nil); err == nil { t.Fatalf("expected dial failure") }
}
