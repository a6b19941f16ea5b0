package store

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/park285/cheese-chess-server/internal/chess"
    "github.com/park285/cheese-chess-server/internal/domain"
    "github.com/park285/cheese-chess-server/internal/obslog"
)

const (
    gameSeqKey   = "chess:game:seq"
    gameIndexKey = "chess:games"
)

func gameKey(id int) string { return "chess:game:" + strconv.Itoa(id) }

// Redis stores each record as JSON under chess:game:<id>.
type Redis struct {
    rdb *redis.Client
    ttl time.Duration
}

// DialRedis connects to redisURL and pings.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for redis backends")
    }
    opts, err := ParseRedisURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return rdb, nil
}

// NewRedis dials its own client. ttl <= 0 keeps records forever.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
    rdb, err := DialRedis(ctx, redisURL)
    if err != nil { return nil, err }
    return &Redis{rdb: rdb, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client. The caller keeps ownership.
func NewRedisWithClient(rdb *redis.Client, ttl time.Duration) *Redis {
    return &Redis{rdb: rdb, ttl: ttl}
}

func (s *Redis) Close() error {
    if s == nil || s.rdb == nil { return nil }
    return s.rdb.Close()
}

func (s *Redis) expiry() time.Duration {
    if s.ttl <= 0 { return 0 }
    return s.ttl
}

// CreateGame allocates an id with INCR and stores a fresh game.
func (s *Redis) CreateGame(ctx context.Context, name, white, black string) (*domain.GameRecord, error) {
    id, err := s.rdb.Incr(ctx, gameSeqKey).Result()
    if err != nil { return nil, fmt.Errorf("allocate game id: %w", err) }
    now := time.Now()
    rec := &domain.GameRecord{
        ID:            int(id),
        Name:          strings.TrimSpace(name),
        WhiteUsername: strings.TrimSpace(white),
        BlackUsername: strings.TrimSpace(black),
        Game:          chess.NewGame(),
        Revision:      1,
        CreatedAt:     now,
        UpdatedAt:     now,
    }
    raw, err := json.Marshal(rec)
    if err != nil { return nil, err }
    pipe := s.rdb.TxPipeline()
    pipe.Set(ctx, gameKey(rec.ID), raw, s.expiry())
    pipe.SAdd(ctx, gameIndexKey, rec.ID)
    if _, err := pipe.Exec(ctx); err != nil { return nil, fmt.Errorf("store game %d: %w", rec.ID, err) }
    obslog.L().Info("store_game_create", zap.Int("game_id", rec.ID), zap.String("name", rec.Name))
    return rec, nil
}

func (s *Redis) GetGame(ctx context.Context, id int) (*domain.GameRecord, error) {
    raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
    if errors.Is(err, redis.Nil) { return nil, domain.ErrGameNotFound }
    if err != nil { return nil, fmt.Errorf("load game %d: %w", id, err) }
    var rec domain.GameRecord
    if err := json.Unmarshal(raw, &rec); err != nil { return nil, fmt.Errorf("decode game %d: %w", id, err) }
    if rec.Game == nil { return nil, fmt.Errorf("decode game %d: missing state", id) }
    return &rec, nil
}

// UpdateGame writes rec under WATCH. A revision mismatch or a concurrent write
// between WATCH and EXEC both surface as domain.ErrConflict.
func (s *Redis) UpdateGame(ctx context.Context, rec *domain.GameRecord) error {
    if rec == nil || rec.Game == nil { return errNilRecord }
    key := gameKey(rec.ID)
    next := rec.Clone()
    next.Revision = rec.Revision + 1
    next.UpdatedAt = time.Now()

    err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
        raw, err := tx.Get(ctx, key).Bytes()
        if errors.Is(err, redis.Nil) { return domain.ErrGameNotFound }
        if err != nil { return err }
        var cur struct {
            Revision int64 `json:"revision"`
        }
        if err := json.Unmarshal(raw, &cur); err != nil { return fmt.Errorf("decode game %d: %w", rec.ID, err) }
        if cur.Revision != rec.Revision { return domain.ErrConflict }

        newRaw, err := json.Marshal(next)
        if err != nil { return err }
        _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
            pipe.Set(ctx, key, newRaw, s.expiry())
            return nil
        })
        return err
    }, key)
    if errors.Is(err, redis.TxFailedErr) {
        obslog.L().Warn("store_game_update_conflict", zap.Int("game_id", rec.ID))
        return domain.ErrConflict
    }
    if err != nil {
        if errors.Is(err, domain.ErrGameNotFound) || errors.Is(err, domain.ErrConflict) { return err }
        return fmt.Errorf("update game %d: %w", rec.ID, err)
    }
    rec.Revision = next.Revision
    rec.UpdatedAt = next.UpdatedAt
    return nil
}

// ListGames returns the indexed games that still exist, ordered by id.
func (s *Redis) ListGames(ctx context.Context) ([]*domain.GameRecord, error) {
    ids, err := s.rdb.SMembers(ctx, gameIndexKey).Result()
    if err != nil { return nil, err }
    out := make([]*domain.GameRecord, 0, len(ids))
    for _, raw := range ids {
        id, err := strconv.Atoi(raw)
        if err != nil { continue }
        rec, err := s.GetGame(ctx, id)
        if errors.Is(err, domain.ErrGameNotFound) {
            // 만료된 게임은 인덱스에서 정리
            _ = s.rdb.SRem(ctx, gameIndexKey, raw).Err()
            continue
        }
        if err != nil { return nil, err }
        out = append(out, rec)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}
