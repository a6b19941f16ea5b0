package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess-server/internal/auth"
	"github.com/park285/cheese-chess-server/internal/config"
	"github.com/park285/cheese-chess-server/internal/dispatch"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/msgcat"
	"github.com/park285/cheese-chess-server/internal/session"
	"github.com/park285/cheese-chess-server/internal/store"
	"github.com/park285/cheese-chess-server/internal/transport/wsserver"
)

// GameStore is what the server needs from a backend beyond dispatch.GameStore.
type GameStore interface {
	dispatch.GameStore
	CreateGame(ctx context.Context, name, white, black string) (*domain.GameRecord, error)
	ListGames(ctx context.Context) ([]*domain.GameRecord, error)
}

type Deps struct {
	Games      GameStore
	Auth       dispatch.IdentityResolver
	Archive    dispatch.ResultArchive
	Registry   *session.Registry
	Dispatcher *dispatch.Dispatcher
	Server     *wsserver.Server

	rdb *redis.Client
	db  *sql.DB
}

// Close releases backend connections.
func (d *Deps) Close() error {
	var errs []error
	if d.rdb != nil {
		errs = append(errs, d.rdb.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (_ *Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()

	if cfg.StoreBackend == config.BackendRedis || cfg.AuthBackend == config.BackendRedis {
		if deps.rdb, err = store.DialRedis(ctx, cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
	}
	if cfg.StoreBackend == config.BackendPostgres || (cfg.ArchiveResults && cfg.DatabaseURL != "") {
		if deps.db, err = store.OpenPostgres(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err = store.NewPostgres(deps.db).Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	// Games
	switch cfg.StoreBackend {
	case config.BackendRedis:
		deps.Games = store.NewRedisWithClient(deps.rdb, cfg.GameTTL)
	case config.BackendPostgres:
		deps.Games = store.NewPostgres(deps.db)
	default:
		deps.Games = store.NewMemory()
	}

	// Identities
	switch cfg.AuthBackend {
	case config.BackendRedis:
		ra := auth.NewRedis(deps.rdb, cfg.AuthTokenTTL)
		for token, user := range cfg.AuthStaticTokens {
			if err = ra.Add(ctx, token, user); err != nil {
				return nil, fmt.Errorf("seed auth token: %w", err)
			}
		}
		deps.Auth = ra
	default:
		ma := auth.NewMemory()
		for token, user := range cfg.AuthStaticTokens {
			ma.Add(token, user)
		}
		deps.Auth = ma
	}

	if cfg.ArchiveResults {
		if deps.db != nil {
			deps.Archive = store.NewPostgresArchive(deps.db)
		} else {
			deps.Archive = store.NewMemoryArchive()
		}
	}

	if err = seedGames(ctx, deps.Games, cfg, logger); err != nil {
		return nil, err
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	formatter, err := chesspresenter.NewFormatter(catalog)
	if err != nil {
		return nil, fmt.Errorf("init formatter: %w", err)
	}

	deps.Registry = session.NewRegistry(logger)
	deps.Dispatcher = dispatch.New(deps.Games, deps.Auth, deps.Registry, dispatch.Options{
		CommandTimeout: cfg.CommandTimeout,
		Archive:        deps.Archive,
		Formatter:      formatter,
		Logger:         logger,
	})
	deps.Server = wsserver.New(deps.Dispatcher, wsserver.Options{
		Path:           cfg.WSPath,
		AllowedOrigins: cfg.WSAllowedOrigins,
		WriteTimeout:   cfg.WSWriteTimeout,
		PingInterval:   cfg.WSPingInterval,
		SendQueue:      cfg.WSSendQueue,
		ReadLimit:      cfg.WSReadLimit,
		Logger:         logger,
	})

	logger.Info("chess_deps_ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("auth", cfg.AuthBackend),
		zap.Bool("archive", deps.Archive != nil),
	)
	return deps, nil
}

// seedGames creates the configured games when the store is empty.
func seedGames(ctx context.Context, games GameStore, cfg *config.AppConfig, logger *zap.Logger) error {
	seeds, err := cfg.Seeds()
	if err != nil || len(seeds) == 0 {
		return err
	}
	existing, err := games.ListGames(ctx)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("chess_seed_skipped", zap.Int("existing", len(existing)))
		return nil
	}
	for _, s := range seeds {
		rec, err := games.CreateGame(ctx, s.Name, s.White, s.Black)
		if err != nil {
			return fmt.Errorf("seed game %q: %w", s.Name, err)
		}
		logger.Info("chess_game_seeded",
			zap.Int("game_id", rec.ID),
			zap.String("name", rec.Name),
			zap.String("white", rec.WhiteUsername),
			zap.String("black", rec.BlackUsername),
		)
	}
	return nil
}
