package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    _ "github.com/lib/pq"

    "github.com/park285/cheese-chess-server/internal/chess"
    "github.com/park285/cheese-chess-server/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
    game_id        SERIAL PRIMARY KEY,
    game_name      TEXT NOT NULL DEFAULT '',
    white_username TEXT,
    black_username TEXT,
    game_state     JSONB NOT NULL,
    moves_uci      JSONB NOT NULL DEFAULT '[]',
    outcome        TEXT NOT NULL DEFAULT '',
    termination    TEXT NOT NULL DEFAULT '',
    revision       BIGINT NOT NULL DEFAULT 1,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS game_results (
    game_id       INTEGER PRIMARY KEY,
    game_name     TEXT NOT NULL DEFAULT '',
    white_username TEXT NOT NULL DEFAULT '',
    black_username TEXT NOT NULL DEFAULT '',
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves_uci     JSONB NOT NULL,
    moves_san     JSONB NOT NULL,
    pgn           TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
);`

// Postgres keeps games in the games table, engine state as JSONB.
type Postgres struct {
    db *sql.DB
}

// OpenPostgres opens a pooled connection and pings within five seconds.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(16)
    db.SetMaxIdleConns(8)
    db.SetConnMaxLifetime(30 * time.Minute)
    pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := db.PingContext(pingCtx); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("postgres ping: %w", err)
    }
    return db, nil
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, schema)
    return err
}

func nullable(s string) sql.NullString {
    s = strings.TrimSpace(s)
    return sql.NullString{String: s, Valid: s != ""}
}

func (p *Postgres) CreateGame(ctx context.Context, name, white, black string) (*domain.GameRecord, error) {
    rec := &domain.GameRecord{
        Name:          strings.TrimSpace(name),
        WhiteUsername: strings.TrimSpace(white),
        BlackUsername: strings.TrimSpace(black),
        Game:          chess.NewGame(),
        Revision:      1,
    }
    state, err := json.Marshal(rec.Game)
    if err != nil { return nil, err }
    const q = `INSERT INTO games (game_name, white_username, black_username, game_state)
        VALUES ($1, $2, $3, $4) RETURNING game_id, created_at, updated_at`
    err = p.db.QueryRowContext(ctx, q, rec.Name, nullable(rec.WhiteUsername), nullable(rec.BlackUsername), string(state)).
        Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
    if err != nil { return nil, fmt.Errorf("insert game: %w", err) }
    return rec, nil
}

const selectGame = `SELECT game_id, game_name, white_username, black_username, game_state,
    moves_uci, outcome, termination, revision, created_at, updated_at FROM games`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.GameRecord, error) {
    var (
        rec          domain.GameRecord
        white, black sql.NullString
        state, moves []byte
    )
    if err := row.Scan(&rec.ID, &rec.Name, &white, &black, &state, &moves,
        &rec.Outcome, &rec.Termination, &rec.Revision, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
        return nil, err
    }
    rec.WhiteUsername = white.String
    rec.BlackUsername = black.String
    rec.Game = new(chess.Game)
    if err := json.Unmarshal(state, rec.Game); err != nil { return nil, fmt.Errorf("decode game_state: %w", err) }
    if len(moves) > 0 {
        if err := json.Unmarshal(moves, &rec.Moves); err != nil { return nil, fmt.Errorf("decode moves_uci: %w", err) }
    }
    return &rec, nil
}

func (p *Postgres) GetGame(ctx context.Context, id int) (*domain.GameRecord, error) {
    rec, err := scanGame(p.db.QueryRowContext(ctx, selectGame+` WHERE game_id = $1`, id))
    if errors.Is(err, sql.ErrNoRows) { return nil, domain.ErrGameNotFound }
    if err != nil { return nil, fmt.Errorf("load game %d: %w", id, err) }
    return rec, nil
}

// UpdateGame is a compare-and-swap on the revision column.
func (p *Postgres) UpdateGame(ctx context.Context, rec *domain.GameRecord) error {
    if rec == nil || rec.Game == nil { return errNilRecord }
    state, err := json.Marshal(rec.Game)
    if err != nil { return err }
    moves := rec.Moves
    if moves == nil { moves = []string{} }
    movesRaw, err := json.Marshal(moves)
    if err != nil { return err }

    const q = `UPDATE games SET
        game_name = $2, white_username = $3, black_username = $4, game_state = $5,
        moves_uci = $6, outcome = $7, termination = $8,
        revision = revision + 1, updated_at = now()
      WHERE game_id = $1 AND revision = $9
      RETURNING revision, updated_at`
    var (
        rev     int64
        updated time.Time
    )
    err = p.db.QueryRowContext(ctx, q, rec.ID, rec.Name, nullable(rec.WhiteUsername), nullable(rec.BlackUsername),
        string(state), string(movesRaw), rec.Outcome, rec.Termination, rec.Revision).Scan(&rev, &updated)
    if errors.Is(err, sql.ErrNoRows) {
        var exists bool
        if qerr := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE game_id = $1)`, rec.ID).Scan(&exists); qerr != nil {
            return fmt.Errorf("update game %d: %w", rec.ID, qerr)
        }
        if !exists { return domain.ErrGameNotFound }
        return domain.ErrConflict
    }
    if err != nil { return fmt.Errorf("update game %d: %w", rec.ID, err) }
    rec.Revision = rev
    rec.UpdatedAt = updated
    return nil
}

func (p *Postgres) ListGames(ctx context.Context) ([]*domain.GameRecord, error) {
    rows, err := p.db.QueryContext(ctx, selectGame+` ORDER BY game_id`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*domain.GameRecord
    for rows.Next() {
        rec, err := scanGame(rows)
        if err != nil { return nil, err }
        out = append(out, rec)
    }
    return out, rows.Err()
}
