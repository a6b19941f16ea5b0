package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/park285/cheese-chess-server/internal/domain"
    "github.com/park285/cheese-chess-server/internal/notation"
    "github.com/park285/cheese-chess-server/internal/obslog"
)

// BuildResult summarises a finished record, including its PGN.
func BuildResult(rec *domain.GameRecord) domain.GameResult {
    moves := append([]string{}, rec.Moves...)
    san := notation.SANList(moves)
    ended := rec.UpdatedAt
    if ended.IsZero() { ended = time.Now() }
    token := notation.ResultToken(rec.Outcome)
    pgn := notation.PGN(notation.Header{
        Event:       rec.Name,
        White:       rec.WhiteUsername,
        Black:       rec.BlackUsername,
        Date:        ended,
        Termination: rec.Termination,
    }, san, token)
    d := ended.Sub(rec.CreatedAt)
    if d < 0 || rec.CreatedAt.IsZero() { d = 0 }
    return domain.GameResult{
        GameID:        rec.ID,
        GameName:      rec.Name,
        WhiteUsername: rec.WhiteUsername,
        BlackUsername: rec.BlackUsername,
        Result:        rec.Outcome,
        ResultMethod:  rec.Termination,
        MovesUCI:      moves,
        MovesSAN:      san,
        PGN:           pgn,
        StartedAt:     rec.CreatedAt,
        EndedAt:       ended,
        Duration:      d,
    }
}

// PostgresArchive upserts finished games into game_results.
type PostgresArchive struct {
    db *sql.DB
}

func NewPostgresArchive(db *sql.DB) *PostgresArchive { return &PostgresArchive{db: db} }

func (a *PostgresArchive) SaveResult(ctx context.Context, rec *domain.GameRecord) error {
    if a == nil || a.db == nil || rec == nil { return nil }
    res := BuildResult(rec)
    movesUCIRaw, err := json.Marshal(res.MovesUCI)
    if err != nil { return fmt.Errorf("marshal moves_uci: %w", err) }
    movesSANRaw, err := json.Marshal(res.MovesSAN)
    if err != nil { return fmt.Errorf("marshal moves_san: %w", err) }

    const q = `INSERT INTO game_results (
        game_id, game_name, white_username, black_username,
        result, result_method, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
      ON CONFLICT (game_id) DO UPDATE SET
        game_name=EXCLUDED.game_name,
        white_username=EXCLUDED.white_username,
        black_username=EXCLUDED.black_username,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

    _, err = a.db.ExecContext(ctx, q,
        res.GameID, res.GameName, res.WhiteUsername, res.BlackUsername,
        res.Result, res.ResultMethod, string(movesUCIRaw), string(movesSANRaw), res.PGN,
        res.StartedAt, res.EndedAt, res.Duration.Milliseconds(),
    )
    if err != nil { return fmt.Errorf("save result %d: %w", res.GameID, err) }
    obslog.L().Info("store_result_archived", zap.Int("game_id", res.GameID), zap.String("result", res.Result), zap.String("method", res.ResultMethod))
    return nil
}

// MemoryArchive keeps results in memory, latest write per game wins.
type MemoryArchive struct {
    mu      sync.Mutex
    results map[int]domain.GameResult
}

func NewMemoryArchive() *MemoryArchive {
    return &MemoryArchive{results: make(map[int]domain.GameResult)}
}

func (a *MemoryArchive) SaveResult(ctx context.Context, rec *domain.GameRecord) error {
    if rec == nil { return nil }
    res := BuildResult(rec)
    a.mu.Lock()
    a.results[res.GameID] = res
    a.mu.Unlock()
    return nil
}

// Result returns the archived result for id.
func (a *MemoryArchive) Result(id int) (domain.GameResult, bool) {
    a.mu.Lock()
    defer a.mu.Unlock()
    r, ok := a.results[id]
    return r, ok
}
