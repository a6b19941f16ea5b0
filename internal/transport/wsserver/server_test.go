package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-chess-server/internal/auth"
	"github.com/park285/cheese-chess-server/internal/dispatch"
	"github.com/park285/cheese-chess-server/internal/session"
	"github.com/park285/cheese-chess-server/internal/store"
	"github.com/park285/cheese-chess-server/internal/wsclient"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

type stack struct {
	srv    *Server
	http   *httptest.Server
	gameID int
}

func newStack(t *testing.T) *stack {
	t.Helper()
	games := store.NewMemory()
	rec, err := games.CreateGame(context.Background(), "ws", "alice", "bob")
	if err != nil { t.Fatalf("CreateGame: %v", err) }
	ids := auth.NewMemory()
	ids.Add("tok-alice", "alice")
	ids.Add("tok-bob", "bob")
	reg := session.NewRegistry(nil)
	d := dispatch.New(games, ids, reg, dispatch.Options{CommandTimeout: 2 * time.Second})

	srv := New(d, Options{Path: "/ws", SendQueue: 16})
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		hs.Close()
	})
	return &stack{srv: srv, http: hs, gameID: rec.ID}
}

func (s *stack) dial(t *testing.T) (*wsclient.Client, <-chan *chessdto.ServerMessage) {
	t.Helper()
	c := wsclient.New("ws"+strings.TrimPrefix(s.http.URL, "http")+"/ws", wsclient.WithMaxReconnectAttempts(0))
	ch := make(chan *chessdto.ServerMessage, 32)
	c.OnMessage(func(msg *chessdto.ServerMessage) {
		cp := *msg
		ch <- &cp
	})
	if err := c.Connect(context.Background()); err != nil { t.Fatalf("Connect: %v", err) }
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, ch
}

func next(t *testing.T, ch <-chan *chessdto.ServerMessage) *chessdto.ServerMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a server message")
	}
	return nil
}

func send(t *testing.T, c *wsclient.Client, cmd *chessdto.Command) {
	t.Helper()
	if err := c.Send(context.Background(), cmd); err != nil { t.Fatalf("Send %s: %v", cmd.CommandType, err) }
}

func TestPlayOverWebSocket(t *testing.T) {
	s := newStack(t)
	alice, aliceIn := s.dial(t)
	bob, bobIn := s.dial(t)

	send(t, alice, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok-alice", GameID: s.gameID})
	if msg := next(t, aliceIn); msg.ServerMessageType != chessdto.MessageLoadGame || msg.GameID != s.gameID {
		t.Fatalf("expected LOAD_GAME, got %+v", msg)
	}

	send(t, bob, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok-bob", GameID: s.gameID})
	if msg := next(t, bobIn); msg.ServerMessageType != chessdto.MessageLoadGame { t.Fatalf("expected LOAD_GAME, got %+v", msg) }
	if msg := next(t, aliceIn); msg.Message != "bob joined as black" { t.Fatalf("unexpected join note %+v", msg) }

	send(t, alice, &chessdto.Command{
		CommandType: chessdto.CommandMakeMove,
		AuthToken:   "tok-alice",
		GameID:      s.gameID,
		Move:        &chessdto.MovePayload{Start: chessdto.PositionPayload{Row: 2, Col: 5}, End: chessdto.PositionPayload{Row: 4, Col: 5}},
	})
	if msg := next(t, aliceIn); msg.ServerMessageType != chessdto.MessageLoadGame { t.Fatalf("mover expected LOAD_GAME, got %+v", msg) }
	if msg := next(t, bobIn); msg.ServerMessageType != chessdto.MessageLoadGame { t.Fatalf("opponent expected LOAD_GAME, got %+v", msg) }
	if msg := next(t, bobIn); msg.Message != "alice moved e4" { t.Fatalf("unexpected move note %+v", msg) }

	send(t, bob, &chessdto.Command{
		CommandType: chessdto.CommandMakeMove,
		AuthToken:   "tok-bob",
		GameID:      s.gameID,
		Move:        &chessdto.MovePayload{Start: chessdto.PositionPayload{Row: 2, Col: 4}, End: chessdto.PositionPayload{Row: 4, Col: 4}},
	})
	msg := next(t, bobIn)
	if msg.ServerMessageType != chessdto.MessageError || !strings.HasPrefix(msg.ErrorMessage, chessdto.ErrorPrefix) {
		t.Fatalf("expected an error for moving white's pawn, got %+v", msg)
	}
}

func TestMalformedFrameGetsProtocolError(t *testing.T) {
	s := newStack(t)
	c, in := s.dial(t)
	send(t, c, &chessdto.Command{CommandType: "DANCE", AuthToken: "tok-alice", GameID: s.gameID})
	msg := next(t, in)
	if msg.ServerMessageType != chessdto.MessageError || !strings.Contains(msg.ErrorMessage, "malformed command") {
		t.Fatalf("expected protocol error, got %+v", msg)
	}
}

func TestHealthz(t *testing.T) {
	s := newStack(t)
	resp, err := http.Get(s.http.URL + "/healthz")
	if err != nil { t.Fatalf("GET /healthz: %v", err) }
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK { t.Fatalf("unexpected status %d", resp.StatusCode) }
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil { t.Fatalf("decode: %v", err) }
	if body["status"] != "ok" { t.Fatalf("unexpected body %v", body) }
}

func TestShutdownClosesSockets(t *testing.T) {
	s := newStack(t)
	c, _ := s.dial(t)
	closed := make(chan struct{}, 1)
	c.OnStateChange(func(st wsclient.State) {
		if st == wsclient.StateDisconnected {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	})
	deadline := time.Now().Add(5 * time.Second)
	for s.srv.ConnCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil { t.Fatalf("Shutdown: %v", err) }
	if n := s.srv.ConnCount(); n != 0 { t.Fatalf("expected no sockets, got %d", n) }
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("client did not notice the shutdown")
	}
}

func TestSendQueueBounds(t *testing.T) {
	c := newWSConn(nil, Options{SendQueue: 1})
	if err := c.Send(chessdto.Notification("a")); err != nil { t.Fatalf("first send: %v", err) }
	if err := c.Send(chessdto.Notification("b")); !errors.Is(err, errQueueFull) { t.Fatalf("expected queue full, got %v", err) }
	_ = c.Close()
	_ = c.Close()
	if err := c.Send(chessdto.Notification("c")); !errors.Is(err, session.ErrClosed) { t.Fatalf("expected closed, got %v", err) }
}
