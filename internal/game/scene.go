package game

import (
	"errors"
	"time"

	"github.com/playmatatu/pooltable/internal/physics"
)

// ErrUnknownCommand is returned by Scene.Apply for command types the scene
// does not understand.
var ErrUnknownCommand = errors.New("unknown command")

// Scene is what a host loop drives: one setup, then one OnTick per frame,
// with commands applied between ticks.
type Scene interface {
	Kind() string
	OnSetup()
	OnTick(now time.Duration)
	Apply(cmd Command) error
	Snapshot() any
	// DrainEvents returns the events emitted since the last call.
	DrainEvents() []Event
}

// Command is a client intent delivered to a scene. Only the fields relevant
// to Type are set.
type Command struct {
	Type   string       `json:"type"`
	Pos    physics.Vec2 `json:"pos"`
	ID     int          `json:"id"`
	Radius float64      `json:"radius"`
}

// Command types understood by the pool table.
const (
	CmdPointerDown = "pointer_down"
	CmdPointerMove = "pointer_move"
	CmdPointerUp   = "pointer_up"
	CmdSelectBall  = "select_ball"
	CmdDeselect    = "deselect"
	CmdReset       = "reset"
)

// EventType names something that happened during a tick or command.
type EventType string

const (
	EventRack     EventType = "rack"
	EventStrike   EventType = "strike"
	EventPocket   EventType = "pocket"
	EventIdleStop EventType = "idle_stop"
	EventFire     EventType = "fire"
	EventHit      EventType = "hit"
	EventReset    EventType = "reset"
)

// Event records a lifecycle change for broadcasting and history.
type Event struct {
	Type     EventType     `json:"type"`
	BallID   int           `json:"ball_id"`
	TargetID int           `json:"target_id,omitempty"` // hole id for pockets
	Position physics.Vec2  `json:"position"`
	Velocity physics.Vec2  `json:"velocity"`
	At       time.Duration `json:"at"`
}

// Clock supplies monotonic timestamps.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Duration

func (f ClockFunc) Now() time.Duration { return f() }

// Line colours used for the aim overlay.
const (
	ColorAim        = "#ff0000"
	ColorTrajectory = "#00ff00"
)

// Line is a drawing instruction for the client overlay.
type Line struct {
	From  physics.Vec2 `json:"from"`
	To    physics.Vec2 `json:"to"`
	Color string       `json:"color"`
}

// Canvas receives purely visual drawing instructions.
type Canvas interface {
	DrawLine(from, to physics.Vec2, color string)
	Clear()
}

// Overlay is a Canvas that keeps the current lines so they can be shipped
// with each snapshot.
type Overlay struct {
	lines []Line
}

func NewOverlay() *Overlay {
	return &Overlay{}
}

func (o *Overlay) DrawLine(from, to physics.Vec2, color string) {
	o.lines = append(o.lines, Line{From: from, To: to, Color: color})
}

func (o *Overlay) Clear() {
	o.lines = o.lines[:0]
}

// Lines returns a copy of the lines drawn since the last Clear.
func (o *Overlay) Lines() []Line {
	out := make([]Line, len(o.lines))
	copy(out, o.lines)
	return out
}
