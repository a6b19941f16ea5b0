package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/wsclient"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

func main() {
	wsURL := os.Getenv("CHESS_WS_URL")
	token := os.Getenv("CHESS_AUTH_TOKEN")
	rawID := os.Getenv("CHESS_GAME_ID")
	rawMove := os.Getenv("CHESS_PROBE_MOVE")

	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}
	if token == "" {
		log.Fatal("CHESS_AUTH_TOKEN is required")
	}
	gameID, err := strconv.Atoi(rawID)
	if err != nil {
		log.Fatalf("CHESS_GAME_ID must be a number: %q", rawID)
	}

	ws := wsclient.New(wsURL, wsclient.WithMaxReconnectAttempts(3))
	ws.OnStateChange(func(state wsclient.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *chessdto.ServerMessage) {
		switch msg.ServerMessageType {
		case chessdto.MessageLoadGame:
			fmt.Printf("LOAD_GAME game=%d fen=%q bytes=%d\n", msg.GameID, msg.FEN, len(msg.Game))
		case chessdto.MessageNotification:
			fmt.Printf("NOTIFICATION %s\n", msg.Message)
		default:
			fmt.Printf("%s %s\n", msg.ServerMessageType, msg.ErrorMessage)
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Fatalf("WS connect error: %v", err)
	}
	defer func() { _ = ws.Close(context.Background()) }()

	if err := ws.Send(cctx, &chessdto.Command{CommandType: chessdto.CommandConnect, AuthToken: token, GameID: gameID}); err != nil {
		log.Fatalf("CONNECT error: %v", err)
	}

	if rawMove != "" {
		m, err := chess.ParseUCI(rawMove)
		if err != nil {
			log.Fatalf("CHESS_PROBE_MOVE: %v", err)
		}
		payload := &chessdto.MovePayload{
			Start: chessdto.PositionPayload{Row: m.Start.Row, Col: m.Start.Col},
			End:   chessdto.PositionPayload{Row: m.End.Row, Col: m.End.Col},
		}
		if m.Promotion != chess.NoKind {
			payload.Promotion = m.Promotion.String()
		}
		if err := ws.Send(cctx, &chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: token, GameID: gameID, Move: payload}); err != nil {
			log.Printf("MAKE_MOVE error: %v", err)
		}
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C
}
