// Package dispatch turns client commands into engine calls, persistence and
// broadcasts. Commands that touch the same game are serialised.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/notation"
	"github.com/park285/cheese-chess-server/internal/session"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

// GameStore loads and saves game records.
type GameStore interface {
	GetGame(ctx context.Context, id int) (*domain.GameRecord, error)
	UpdateGame(ctx context.Context, rec *domain.GameRecord) error
}

// IdentityResolver maps an auth token to a user.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// ResultArchive records finished games.
type ResultArchive interface {
	SaveResult(ctx context.Context, rec *domain.GameRecord) error
}

const defaultCommandTimeout = 5 * time.Second

type Options struct {
	// CommandTimeout bounds a whole command, lock wait and persistence included.
	CommandTimeout time.Duration
	Archive        ResultArchive
	Formatter      *chesspresenter.Formatter
	Logger         *zap.Logger
}

type Dispatcher struct {
	games    GameStore
	auth     IdentityResolver
	registry *session.Registry
	archive  ResultArchive
	text     *chesspresenter.Formatter
	locks    *gameLocks
	timeout  time.Duration
	logger   *zap.Logger
}

func New(games GameStore, auth IdentityResolver, registry *session.Registry, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	text := opts.Formatter
	if text == nil {
		text, _ = chesspresenter.NewFormatter(nil)
	}
	return &Dispatcher{
		games:    games,
		auth:     auth,
		registry: registry,
		archive:  opts.Archive,
		text:     text,
		locks:    newGameLocks(),
		timeout:  timeout,
		logger:   logger,
	}
}

// Handle decodes one raw frame and dispatches it. Malformed frames get a
// PROTOCOL error reply.
func (d *Dispatcher) Handle(ctx context.Context, conn session.Conn, raw []byte) error {
	cmd, err := chessdto.DecodeCommand(raw)
	if err != nil {
		return d.fail(conn, nil, protocolError(err.Error()))
	}
	return d.Dispatch(ctx, conn, cmd)
}

// Dispatch runs one command for conn. Any failure is sent privately to conn as an
// ERROR message and also returned.
func (d *Dispatcher) Dispatch(ctx context.Context, conn session.Conn, cmd *chessdto.Command) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var err error
	switch cmd.CommandType {
	case chessdto.CommandConnect:
		err = d.connect(ctx, conn, cmd)
	case chessdto.CommandMakeMove:
		err = d.makeMove(ctx, conn, cmd)
	case chessdto.CommandLeave:
		err = d.leave(ctx, conn, cmd)
	case chessdto.CommandResign:
		err = d.resign(ctx, conn, cmd)
	default:
		err = protocolError(fmt.Sprintf("unknown commandType %q", cmd.CommandType))
	}
	if err != nil {
		return d.fail(conn, cmd, err)
	}
	return nil
}

// Disconnect detaches a closed transport handle from every game.
func (d *Dispatcher) Disconnect(conn session.Conn) {
	d.registry.Remove(conn)
}

func (d *Dispatcher) fail(conn session.Conn, cmd *chessdto.Command, err error) error {
	de, internal := classify(err)
	fields := []zap.Field{zap.String("conn_id", conn.ID()), zap.String("code", string(de.Code)), zap.Error(err)}
	if cmd != nil {
		fields = append(fields, zap.String("command", string(cmd.CommandType)), zap.Int("game_id", cmd.GameID))
	}
	switch {
	case errors.Is(err, chess.ErrKingMissing):
		d.logger.DPanic("dispatch_invariant_violation", fields...)
	case internal:
		d.logger.Error("dispatch_command_error", fields...)
	default:
		d.logger.Debug("dispatch_command_rejected", fields...)
	}
	_ = d.registry.Send(conn, de.ToMessage())
	return de
}

// gameSession holds what every game command needs once authorised and locked.
type gameSession struct {
	who    domain.Identity
	rec    *domain.GameRecord
	unlock func()
}

// open resolves the token, takes the game lock and loads the record.
// The caller must call unlock when err is nil.
func (d *Dispatcher) open(ctx context.Context, cmd *chessdto.Command) (*gameSession, error) {
	who, err := d.auth.Resolve(ctx, cmd.AuthToken)
	if err != nil {
		return nil, err
	}
	unlock, err := d.locks.lock(ctx, cmd.GameID)
	if err != nil {
		return nil, err
	}
	rec, err := d.games.GetGame(ctx, cmd.GameID)
	if err != nil {
		unlock()
		return nil, err
	}
	return &gameSession{who: who, rec: rec, unlock: unlock}, nil
}

func roleOf(rec *domain.GameRecord, username string) session.Role {
	if c, ok := rec.SeatOf(username); ok {
		return session.RoleFor(c)
	}
	return session.RoleObserver
}

func (d *Dispatcher) loadMessage(rec *domain.GameRecord) (*chessdto.ServerMessage, error) {
	raw, err := json.Marshal(rec.Game)
	if err != nil {
		return nil, fmt.Errorf("encode game %d: %w", rec.ID, err)
	}
	fen, err := notation.FEN(rec.Moves)
	if err != nil {
		d.logger.Debug("dispatch_fen_unavailable", zap.Int("game_id", rec.ID), zap.Error(err))
		fen = ""
	}
	return chessdto.LoadGame(rec.ID, raw, fen), nil
}

func (d *Dispatcher) connect(ctx context.Context, conn session.Conn, cmd *chessdto.Command) error {
	gs, err := d.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer gs.unlock()
	rec, user := gs.rec, gs.who.Username

	load, err := d.loadMessage(rec)
	if err != nil {
		return err
	}
	role := roleOf(rec, user)
	d.registry.Add(rec.ID, user, conn, role)
	if err := d.registry.Send(conn, load); err != nil {
		return nil
	}

	text := d.text.JoinedObserver(user)
	if c, ok := role.Color(); ok {
		text = d.text.JoinedPlayer(user, c)
	}
	d.registry.BroadcastExcept(rec.ID, conn.ID(), chessdto.Notification(text))
	d.logger.Info("dispatch_connect", zap.Int("game_id", rec.ID), zap.String("user", user), zap.String("role", string(role)))
	return nil
}

func toMove(p *chessdto.MovePayload) (chess.Move, error) {
	if p == nil {
		return chess.Move{}, protocolError("move is required")
	}
	m := chess.Move{
		Start: chess.Pos(p.Start.Row, p.Start.Col),
		End:   chess.Pos(p.End.Row, p.End.Col),
	}
	if !m.Start.Valid() || !m.End.Valid() {
		return chess.Move{}, protocolError("move position off the board")
	}
	if p.Promotion != "" {
		k, err := chess.ParseKind(p.Promotion)
		if err != nil || !k.IsPromotion() {
			return chess.Move{}, protocolError(fmt.Sprintf("invalid promotion %q", p.Promotion))
		}
		m.Promotion = k
	}
	return m, nil
}

func (d *Dispatcher) makeMove(ctx context.Context, conn session.Conn, cmd *chessdto.Command) error {
	move, err := toMove(cmd.Move)
	if err != nil {
		return err
	}
	gs, err := d.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer gs.unlock()
	rec, user := gs.rec, gs.who.Username

	color, seated := rec.SeatOf(user)
	if !seated {
		return errObserver
	}
	if rec.Game.Over() {
		return chess.ErrGameOver
	}
	if rec.Game.Turn() != color {
		return chess.ErrWrongTurn
	}
	if err := rec.Game.ApplyMove(move); err != nil {
		return err
	}

	san, err := notation.SAN(rec.Moves, move.UCI())
	if err != nil {
		d.logger.Debug("dispatch_san_unavailable", zap.Int("game_id", rec.ID), zap.String("move", move.UCI()), zap.Error(err))
	}
	rec.Moves = append(rec.Moves, move.UCI())

	opponent := color.Opponent()
	status, err := rec.Game.Status(opponent)
	if err != nil {
		return err
	}
	switch status {
	case chess.StatusCheckmate:
		rec.Finish(domain.OutcomeFor(color), domain.TerminationCheckmate)
	case chess.StatusStalemate:
		rec.Finish(domain.OutcomeDraw, domain.TerminationStalemate)
	}

	if err := d.games.UpdateGame(ctx, rec); err != nil {
		return err
	}

	load, err := d.loadMessage(rec)
	if err != nil {
		return err
	}
	d.registry.Broadcast(rec.ID, load)
	desc := chesspresenter.MoveDescription(move, san)
	d.registry.BroadcastExcept(rec.ID, conn.ID(), chessdto.Notification(d.text.Moved(user, desc)))
	if text := d.text.Status(rec.PlayerOn(opponent), opponent, status); text != "" {
		d.registry.Broadcast(rec.ID, chessdto.Notification(text))
	}

	d.logger.Info("dispatch_move",
		zap.Int("game_id", rec.ID),
		zap.String("user", user),
		zap.String("move", move.UCI()),
		zap.String("san", san),
		zap.String("status", status.String()),
		zap.Int64("revision", rec.Revision),
	)
	if rec.Game.Over() {
		d.archiveResult(ctx, rec)
	}
	return nil
}

func (d *Dispatcher) leave(ctx context.Context, conn session.Conn, cmd *chessdto.Command) error {
	gs, err := d.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer gs.unlock()
	rec, user := gs.rec, gs.who.Username

	if rec.Release(user) {
		if err := d.games.UpdateGame(ctx, rec); err != nil {
			return err
		}
	}
	d.registry.RemoveFromGame(rec.ID, conn)
	d.registry.Broadcast(rec.ID, chessdto.Notification(d.text.Left(user)))
	d.logger.Info("dispatch_leave", zap.Int("game_id", rec.ID), zap.String("user", user))
	return nil
}

func (d *Dispatcher) resign(ctx context.Context, conn session.Conn, cmd *chessdto.Command) error {
	gs, err := d.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer gs.unlock()
	rec, user := gs.rec, gs.who.Username

	color, seated := rec.SeatOf(user)
	if !seated {
		return errObserver
	}
	if rec.Game.Over() {
		return chess.ErrGameOver
	}
	winner := color.Opponent()
	rec.Finish(domain.OutcomeFor(winner), domain.TerminationResignation)
	if err := d.games.UpdateGame(ctx, rec); err != nil {
		return err
	}
	d.registry.Broadcast(rec.ID, chessdto.Notification(d.text.Resigned(user, winner)))
	d.logger.Info("dispatch_resign", zap.Int("game_id", rec.ID), zap.String("user", user), zap.String("winner", winner.String()))
	d.archiveResult(ctx, rec)
	return nil
}

func (d *Dispatcher) archiveResult(ctx context.Context, rec *domain.GameRecord) {
	if d.archive == nil {
		return
	}
	if err := d.archive.SaveResult(ctx, rec); err != nil {
		d.logger.Error("dispatch_archive_error", zap.Int("game_id", rec.ID), zap.String("outcome", rec.Outcome), zap.Error(err))
	}
}
