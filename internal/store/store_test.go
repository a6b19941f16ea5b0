package store

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"

    "github.com/park285/cheese-chess-server/internal/chess"
    "github.com/park285/cheese-chess-server/internal/domain"
)

type gameStore interface {
    CreateGame(ctx context.Context, name, white, black string) (*domain.GameRecord, error)
    GetGame(ctx context.Context, id int) (*domain.GameRecord, error)
    UpdateGame(ctx context.Context, rec *domain.GameRecord) error
    ListGames(ctx context.Context) ([]*domain.GameRecord, error)
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(mr.Close)
    s, err := NewRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
    if err != nil { t.Fatalf("NewRedis: %v", err) }
    t.Cleanup(func() { _ = s.Close() })
    return s, mr
}

func backends(t *testing.T) map[string]gameStore {
    r, _ := newTestRedis(t)
    return map[string]gameStore{"memory": NewMemory(), "redis": r}
}

func move(t *testing.T, g *chess.Game, uci string) {
    t.Helper()
    m, err := chess.ParseUCI(uci)
    if err != nil { t.Fatalf("ParseUCI: %v", err) }
    if err := g.ApplyMove(m); err != nil { t.Fatalf("ApplyMove(%s): %v", uci, err) }
}

func TestCreateGetUpdate(t *testing.T) {
    for name, s := range backends(t) {
        ctx := context.Background()
        rec, err := s.CreateGame(ctx, " Casual ", "alice", "")
        if err != nil { t.Fatalf("%s: CreateGame: %v", name, err) }
        if rec.ID == 0 || rec.Name != "Casual" || rec.WhiteUsername != "alice" || rec.BlackUsername != "" {
            t.Fatalf("%s: unexpected record %+v", name, rec)
        }

        got, err := s.GetGame(ctx, rec.ID)
        if err != nil { t.Fatalf("%s: GetGame: %v", name, err) }
        if !got.Game.Equal(chess.NewGame()) { t.Fatalf("%s: new game should be in the initial position", name) }

        move(t, got.Game, "e2e4")
        got.Moves = append(got.Moves, "e2e4")
        got.BlackUsername = "bob"
        rev := got.Revision
        if err := s.UpdateGame(ctx, got); err != nil { t.Fatalf("%s: UpdateGame: %v", name, err) }
        if got.Revision != rev+1 { t.Fatalf("%s: revision not advanced: %d", name, got.Revision) }

        again, err := s.GetGame(ctx, rec.ID)
        if err != nil { t.Fatalf("%s: GetGame: %v", name, err) }
        if !again.Game.Equal(got.Game) || again.BlackUsername != "bob" || len(again.Moves) != 1 {
            t.Fatalf("%s: update not persisted: %+v", name, again)
        }
    }
}

func TestGetMissingGame(t *testing.T) {
    for name, s := range backends(t) {
        if _, err := s.GetGame(context.Background(), 999); !errors.Is(err, domain.ErrGameNotFound) {
            t.Fatalf("%s: expected ErrGameNotFound, got %v", name, err)
        }
        rec := &domain.GameRecord{ID: 999, Game: chess.NewGame(), Revision: 1}
        if err := s.UpdateGame(context.Background(), rec); !errors.Is(err, domain.ErrGameNotFound) {
            t.Fatalf("%s: update of missing game: expected ErrGameNotFound, got %v", name, err)
        }
    }
}

func TestStaleRevisionConflicts(t *testing.T) {
    for name, s := range backends(t) {
        ctx := context.Background()
        rec, err := s.CreateGame(ctx, "g", "alice", "bob")
        if err != nil { t.Fatalf("%s: CreateGame: %v", name, err) }
        a, _ := s.GetGame(ctx, rec.ID)
        b, _ := s.GetGame(ctx, rec.ID)

        move(t, a.Game, "e2e4")
        if err := s.UpdateGame(ctx, a); err != nil { t.Fatalf("%s: first update: %v", name, err) }
        move(t, b.Game, "d2d4")
        if err := s.UpdateGame(ctx, b); !errors.Is(err, domain.ErrConflict) { t.Fatalf("%s: expected ErrConflict, got %v", name, err) }

        cur, _ := s.GetGame(ctx, rec.ID)
        if _, ok := cur.Game.PieceAt(chess.Pos(4, 5)); !ok { t.Fatalf("%s: first writer's move lost", name) }
    }
}

func TestMemoryReturnsCopies(t *testing.T) {
    s := NewMemory()
    ctx := context.Background()
    rec, _ := s.CreateGame(ctx, "g", "alice", "bob")
    got, _ := s.GetGame(ctx, rec.ID)
    move(t, got.Game, "e2e4")
    again, _ := s.GetGame(ctx, rec.ID)
    if !again.Game.Equal(chess.NewGame()) { t.Fatalf("mutating a returned record leaked into the store") }
}

func TestListGames(t *testing.T) {
    for name, s := range backends(t) {
        ctx := context.Background()
        for i := 0; i < 3; i++ {
            if _, err := s.CreateGame(ctx, fmt.Sprintf("g%d", i), "", ""); err != nil { t.Fatalf("%s: CreateGame: %v", name, err) }
        }
        list, err := s.ListGames(ctx)
        if err != nil { t.Fatalf("%s: ListGames: %v", name, err) }
        if len(list) != 3 || list[0].ID >= list[2].ID { t.Fatalf("%s: unexpected list %+v", name, list) }
    }
}

func TestRedisListDropsExpired(t *testing.T) {
    s, mr := newTestRedis(t)
    ctx := context.Background()
    if _, err := s.CreateGame(ctx, "short", "", ""); err != nil { t.Fatalf("CreateGame: %v", err) }
    mr.FastForward(2 * time.Hour)
    list, err := s.ListGames(ctx)
    if err != nil { t.Fatalf("ListGames: %v", err) }
    if len(list) != 0 { t.Fatalf("expired game still listed: %+v", list) }
}

func TestParseRedisURL(t *testing.T) {
    opts, err := ParseRedisURL("redis://:secret@localhost:6380/2")
    if err != nil { t.Fatalf("ParseRedisURL: %v", err) }
    if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 { t.Fatalf("unexpected options %+v", opts) }
    for _, bad := range []string{"http://localhost", "redis://", "redis://host/x"} {
        if _, err := ParseRedisURL(bad); err == nil { t.Fatalf("ParseRedisURL(%q) should fail", bad) }
    }
}

func TestBuildResult(t *testing.T) {
    g := chess.NewGame()
    for _, m := range []string{"e2e4", "f7f6", "d2d4", "g7g5", "d1h5"} { move(t, g, m) }
    created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
    rec := &domain.GameRecord{
        ID: 7, Name: "Blitz", WhiteUsername: "alice", BlackUsername: "bob",
        Game: g, Moves: []string{"e2e4", "f7f6", "d2d4", "g7g5", "d1h5"},
        CreatedAt: created, UpdatedAt: created.Add(3 * time.Minute),
    }
    rec.Finish(domain.OutcomeWhite, domain.TerminationCheckmate)

    res := BuildResult(rec)
    if res.Result != "white" || res.ResultMethod != "checkmate" || res.Duration != 3*time.Minute {
        t.Fatalf("unexpected result %+v", res)
    }
    if len(res.MovesSAN) != 5 || res.MovesSAN[0] != "e4" { t.Fatalf("unexpected SAN %v", res.MovesSAN) }
    if !strings.Contains(res.PGN, `[Result "1-0"]`) || !strings.Contains(res.PGN, "1. e4 f6 2. d4 g5 3. Qh5") {
        t.Fatalf("unexpected PGN:\n%s", res.PGN)
    }

    arch := NewMemoryArchive()
    if err := arch.SaveResult(context.Background(), rec); err != nil { t.Fatalf("SaveResult: %v", err) }
    if got, ok := arch.Result(7); !ok || got.PGN != res.PGN { t.Fatalf("archive did not keep the result") }
}
