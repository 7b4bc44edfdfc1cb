package ws

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/physics"
)

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outgoing message types.
const (
	MsgTableState  = "table_state"
	MsgTableEvent  = "table_event"
	MsgTableClosed = "table_closed"
	MsgError       = "error"
	MsgGetState    = "get_state"
)

var errBadPayload = errors.New("invalid message data")

// commandData is the union of every command payload.
type commandData struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	ID     *int     `json:"id"`
	Radius *float64 `json:"radius"`
}

// ParseCommand turns a client message into a scene command. Whether the
// scene understands the type is left to the scene.
func ParseCommand(msg WSMessage) (game.Command, error) {
	cmd := game.Command{Type: msg.Type}
	if msg.Type == "" {
		return cmd, errors.New("missing message type")
	}

	var data commandData
	if len(msg.Data) > 0 && string(msg.Data) != "null" {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return cmd, errBadPayload
		}
	}

	for _, f := range []*float64{data.X, data.Y, data.Radius} {
		if f != nil && (math.IsNaN(*f) || math.IsInf(*f, 0)) {
			return cmd, errBadPayload
		}
	}

	switch msg.Type {
	case game.CmdPointerDown, game.CmdPointerMove, game.CmdPointerUp:
		if data.X == nil || data.Y == nil {
			return cmd, errBadPayload
		}
		cmd.Pos = physics.NewVec2(*data.X, *data.Y)
	case game.CmdSelectBall, "select_circle":
		if data.ID == nil {
			return cmd, errBadPayload
		}
		cmd.ID = *data.ID
	case "resize_circle":
		if data.Radius == nil {
			return cmd, errBadPayload
		}
		cmd.Radius = *data.Radius
	case "move_circle":
		if data.ID == nil || data.X == nil || data.Y == nil {
			return cmd, errBadPayload
		}
		cmd.ID = *data.ID
		cmd.Pos = physics.NewVec2(*data.X, *data.Y)
	}
	return cmd, nil
}

// envelope is the shape of every outgoing message.
type envelope struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}
