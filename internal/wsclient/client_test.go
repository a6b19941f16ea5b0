package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

// echoServer answers each command with a notification naming the command and
// the socket's sequence number. When dropFirst is set the first socket is closed
// after its first command.
func echoServer(t *testing.T, dropFirst bool) *httptest.Server {
	t.Helper()
	var seq atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "")
		n := seq.Add(1)
		for {
			var cmd chessdto.Command
			if err := wsjson.Read(r.Context(), ws, &cmd); err != nil {
				return
			}
			if dropFirst && n == 1 {
				_ = ws.Close(websocket.StatusGoingAway, "bye")
				return
			}
			text := fmt.Sprintf("%d:%s:%d", n, cmd.CommandType, cmd.GameID)
			if err := wsjson.Write(r.Context(), ws, chessdto.Notification(text)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(c *Client) <-chan string {
	ch := make(chan string, 16)
	c.OnMessage(func(msg *chessdto.ServerMessage) { ch <- msg.Message })
	return ch
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want { t.Fatalf("expected %q, got %q", want, got) }
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestSendAndReceive(t *testing.T) {
	srv := echoServer(t, false)
	c := New(wsURL(srv), WithMaxReconnectAttempts(0))
	defer c.Close(context.Background())
	got := collect(c)

	if err := c.Connect(context.Background()); err != nil { t.Fatalf("Connect: %v", err) }
	if c.State() != StateConnected { t.Fatalf("expected connected, got %s", c.State()) }

	cmd := &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok", GameID: 4}
	if err := c.Send(context.Background(), cmd); err != nil { t.Fatalf("Send: %v", err) }
	waitFor(t, got, "1:CONNECT:4")
}

func TestReconnectReplaysConnect(t *testing.T) {
	srv := echoServer(t, true)
	c := New(wsURL(srv), WithMaxReconnectAttempts(5))
	defer c.Close(context.Background())
	got := collect(c)

	if err := c.Connect(context.Background()); err != nil { t.Fatalf("Connect: %v", err) }
	cmd := &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: "tok", GameID: 9}
	if err := c.Send(context.Background(), cmd); err != nil { t.Fatalf("Send: %v", err) }

	waitFor(t, got, "2:CONNECT:9")
}

func TestSendWhileDisconnected(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws", WithMaxReconnectAttempts(0))
	defer c.Close(context.Background())
	err := c.Send(context.Background(), &chessdto.Command{CommandType: chessdto.CommandResign, AuthToken: "t", GameID: 1})
	if !errors.Is(err, ErrNotConnected) { t.Fatalf("expected ErrNotConnected, got %v", err) }
}

func TestLeaveForgetsGame(t *testing.T) {
	c := New("ws://unused", WithMaxReconnectAttempts(0))
	c.remember(&chessdto.Command{CommandType: chessdto.CommandConnect, GameID: 1})
	c.remember(&chessdto.Command{CommandType: chessdto.CommandConnect, GameID: 2})
	c.remember(&chessdto.Command{CommandType: chessdto.CommandLeave, GameID: 1})
	if _, ok := c.joined[1]; ok { t.Fatalf("game 1 should be forgotten") }
	if _, ok := c.joined[2]; !ok { t.Fatalf("game 2 should be remembered") }
}

func TestStateCallbacks(t *testing.T) {
	c := New("ws://unused", WithMaxReconnectAttempts(0))
	var seen []State
	id := c.OnStateChange(func(s State) { seen = append(seen, s) })
	c.setState(StateConnecting)
	c.RemoveStateCallback(id)
	c.setState(StateConnected)
	if len(seen) != 1 || seen[0] != StateConnecting { t.Fatalf("unexpected states %v", seen) }
}

func TestBackoffDuration(t *testing.T) {
	if d := backoffDuration(0); d != 100*time.Millisecond { t.Fatalf("attempt 0: %v", d) }
	if d := backoffDuration(3); d != 400*time.Millisecond { t.Fatalf("attempt 3: %v", d) }
	if d := backoffDuration(10); d != 3200*time.Millisecond { t.Fatalf("attempt 10: %v", d) }
}
