package chessdto

import "encoding/json"

// ServerMessageType names the three outbound message kinds.
type ServerMessageType string

const (
	MessageLoadGame     ServerMessageType = "LOAD_GAME"
	MessageNotification ServerMessageType = "NOTIFICATION"
	MessageError        ServerMessageType = "ERROR"
)

// ServerMessage is one outbound frame. Game holds the serialized game state for
// LOAD_GAME; GameID and FEN accompany it when known.
type ServerMessage struct {
	ServerMessageType ServerMessageType `json:"serverMessageType"`
	Game              json.RawMessage   `json:"game,omitempty"`
	GameID            int               `json:"gameID,omitempty"`
	FEN               string            `json:"fen,omitempty"`
	Message           string            `json:"message,omitempty"`
	ErrorMessage      string            `json:"errorMessage,omitempty"`
}

func LoadGame(gameID int, game json.RawMessage, fen string) *ServerMessage {
	return &ServerMessage{ServerMessageType: MessageLoadGame, GameID: gameID, Game: game, FEN: fen}
}

func Notification(text string) *ServerMessage {
	return &ServerMessage{ServerMessageType: MessageNotification, Message: text}
}
