package store

import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/park285/cheese-chess-server/internal/chess"
    "github.com/park285/cheese-chess-server/internal/domain"
)

// Memory is a process-local game store for development and tests.
// Records are deep-copied on the way in and out.
type Memory struct {
    mu     sync.RWMutex
    nextID int
    games  map[int]*domain.GameRecord
}

func NewMemory() *Memory {
    return &Memory{games: make(map[int]*domain.GameRecord)}
}

// CreateGame stores a fresh game in the standard starting position.
func (m *Memory) CreateGame(ctx context.Context, name, white, black string) (*domain.GameRecord, error) {
    now := time.Now()
    m.mu.Lock()
    defer m.mu.Unlock()
    m.nextID++
    rec := &domain.GameRecord{
        ID:            m.nextID,
        Name:          strings.TrimSpace(name),
        WhiteUsername: strings.TrimSpace(white),
        BlackUsername: strings.TrimSpace(black),
        Game:          chess.NewGame(),
        Revision:      1,
        CreatedAt:     now,
        UpdatedAt:     now,
    }
    m.games[rec.ID] = rec
    return rec.Clone(), nil
}

func (m *Memory) GetGame(ctx context.Context, id int) (*domain.GameRecord, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    rec, ok := m.games[id]
    if !ok { return nil, domain.ErrGameNotFound }
    return rec.Clone(), nil
}

// UpdateGame replaces the record when rec.Revision matches the stored one,
// then advances rec.Revision.
func (m *Memory) UpdateGame(ctx context.Context, rec *domain.GameRecord) error {
    if rec == nil || rec.Game == nil { return errNilRecord }
    m.mu.Lock()
    defer m.mu.Unlock()
    cur, ok := m.games[rec.ID]
    if !ok { return domain.ErrGameNotFound }
    if cur.Revision != rec.Revision { return domain.ErrConflict }
    rec.Revision++
    rec.UpdatedAt = time.Now()
    m.games[rec.ID] = rec.Clone()
    return nil
}

// ListGames returns every game ordered by id.
func (m *Memory) ListGames(ctx context.Context) ([]*domain.GameRecord, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    out := make([]*domain.GameRecord, 0, len(m.games))
    for _, rec := range m.games {
        out = append(out, rec.Clone())
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}
