package chessdto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CommandType names the four client commands.
type CommandType string

const (
	CommandConnect  CommandType = "CONNECT"
	CommandMakeMove CommandType = "MAKE_MOVE"
	CommandLeave    CommandType = "LEAVE"
	CommandResign   CommandType = "RESIGN"
)

// Command is one inbound client frame.
type Command struct {
	CommandType CommandType  `json:"commandType"`
	AuthToken   string       `json:"authToken"`
	GameID      int          `json:"gameID"`
	Move        *MovePayload `json:"move,omitempty"`
}

// DecodeCommand parses and shape-checks one frame. Unknown fields, trailing data,
// unknown command types and MAKE_MOVE without a move are rejected.
func DecodeCommand(raw []byte) (*Command, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var cmd Command
	if err := dec.Decode(&cmd); err != nil {
		return nil, fmt.Errorf("malformed command: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("malformed command: trailing data")
	}
	cmd.CommandType = CommandType(strings.ToUpper(strings.TrimSpace(string(cmd.CommandType))))
	switch cmd.CommandType {
	case CommandConnect, CommandLeave, CommandResign:
	case CommandMakeMove:
		if cmd.Move == nil {
			return nil, fmt.Errorf("malformed command: MAKE_MOVE requires a move")
		}
	case "":
		return nil, fmt.Errorf("malformed command: commandType missing")
	default:
		return nil, fmt.Errorf("malformed command: unknown commandType %q", cmd.CommandType)
	}
	if strings.TrimSpace(cmd.AuthToken) == "" {
		return nil, fmt.Errorf("malformed command: authToken missing")
	}
	return &cmd, nil
}
