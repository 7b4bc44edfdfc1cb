package game

import (
	"log"
	"time"

	"github.com/playmatatu/pooltable/internal/physics"
)

// KindPool identifies the pool table scene.
const KindPool = "pool"

// Ball is a rack member. Position and velocity live in the physics world.
type Ball struct {
	ID       int
	Body     physics.BodyID
	Radius   float64
	Pocketed bool
}

// BallState is a ball's serialisable view.
type BallState struct {
	ID       int          `json:"id"`
	Position physics.Vec2 `json:"position"`
	Velocity physics.Vec2 `json:"velocity"`
	Speed    float64      `json:"speed"`
}

// TableSnapshot is the pool table's serialisable view.
type TableSnapshot struct {
	Kind           string      `json:"kind"`
	Width          float64     `json:"width"`
	Height         float64     `json:"height"`
	BallRadius     float64     `json:"ball_radius"`
	Rack           int         `json:"rack"`
	Balls          []BallState `json:"balls"`
	Holes          []Hole      `json:"holes"`
	Phase          string      `json:"phase"`
	SelectedBallID *int        `json:"selected_ball_id,omitempty"`
	Lines          []Line      `json:"lines"`
	LastMovementMs int64       `json:"last_movement_ms"`
}

// Simulation is the pool table aggregate: hole registry, ball set, aim
// controller and idle monitor. It is not safe for concurrent use; the host
// serialises ticks and commands.
type Simulation struct {
	opts   Options
	world  physics.Engine
	clock  Clock
	canvas Canvas

	holes  []Hole
	balls  []*Ball
	aim    AimState
	idle   IdleTracker
	rack   int
	events []Event
}

// NewSimulation wires a table to its physics world, clock and canvas.
// A nil canvas gets an Overlay.
func NewSimulation(world physics.Engine, clock Clock, canvas Canvas, opts Options) *Simulation {
	if canvas == nil {
		canvas = NewOverlay()
	}
	return &Simulation{
		opts:   opts.withDefaults(),
		world:  world,
		clock:  clock,
		canvas: canvas,
	}
}

func (s *Simulation) Kind() string { return KindPool }

// Balls returns the live ball set in rack order.
func (s *Simulation) Balls() []*Ball { return s.balls }

// Holes returns the hole registry.
func (s *Simulation) Holes() []Hole { return s.holes }

// Rack returns how many times the table has been racked.
func (s *Simulation) Rack() int { return s.rack }

// Idle exposes the idle tracker.
func (s *Simulation) Idle() IdleTracker { return s.idle }

// OnSetup racks the table.
func (s *Simulation) OnSetup() {
	s.reset(s.clock.Now())
}

// Reset re-racks unconditionally. Resetting an already empty table yields
// the same rack every time.
func (s *Simulation) Reset() {
	s.reset(s.clock.Now())
}

func (s *Simulation) reset(now time.Duration) {
	for _, b := range s.balls {
		b.Pocketed = true
		s.world.Destroy(b.Body)
	}
	s.balls = make([]*Ball, 0, RackSize)
	s.holes = NewHoles(s.opts.Width, s.opts.Height, s.opts.BallRadius)

	opts := physics.BodyOptions{
		CollideWorldBounds: true,
		Bounce:             BallBounce,
		Damping:            true,
		Drag:               BallDrag,
	}
	for i, p := range RackPositions(s.opts.Width, s.opts.Height, s.opts.BallRadius) {
		id := s.world.CreateCircle(p, s.opts.BallRadius, opts)
		s.balls = append(s.balls, &Ball{ID: i, Body: id, Radius: s.opts.BallRadius})
	}

	s.idle = NewIdleTracker(s.opts.MovingSpeed, s.opts.StillSpeed, s.opts.IdleStopAfter, now)
	s.clearAim()
	s.rack++
	s.emit(Event{Type: EventRack, At: now})
}

// OnTick pockets balls, re-racks an empty table and applies the idle stop.
func (s *Simulation) OnTick(now time.Duration) {
	s.idle.BeginTick()

	var pocketed []*Ball
	for _, b := range s.balls {
		pos := s.world.Position(b.Body)
		if hole, ok := s.captureHole(pos); ok {
			b.Pocketed = true
			pocketed = append(pocketed, b)
			s.emit(Event{Type: EventPocket, BallID: b.ID, TargetID: hole.ID, Position: pos, At: now})
			continue
		}
		s.idle.Observe(s.world.Speed(b.Body), now)
	}

	if len(pocketed) > 0 {
		s.removeBalls(pocketed)
		if len(s.balls) == 0 {
			log.Printf("[POOL] table cleared after rack %d, re-racking", s.rack)
			s.reset(now)
			return
		}
	}

	if s.idle.ShouldStop(now) {
		stopped := false
		for _, b := range s.balls {
			if !s.world.Velocity(b.Body).IsZero() {
				s.world.SetVelocity(b.Body, physics.Vec2{})
				stopped = true
			}
		}
		if stopped {
			s.emit(Event{Type: EventIdleStop, At: now})
		}
	}
}

// captureHole returns the first hole the position falls into.
func (s *Simulation) captureHole(pos physics.Vec2) (Hole, bool) {
	for _, h := range s.holes {
		if pos.DistanceTo(h.Position) < h.CaptureRadius {
			return h, true
		}
	}
	return Hole{}, false
}

func (s *Simulation) removeBalls(gone []*Ball) {
	for _, b := range gone {
		s.world.Destroy(b.Body)
	}
	kept := make([]*Ball, 0, len(s.balls))
	for _, b := range s.balls {
		if !b.Pocketed {
			kept = append(kept, b)
		}
	}
	s.balls = kept
}

// BallByID returns the live ball with the given id.
func (s *Simulation) BallByID(id int) (*Ball, bool) {
	for _, b := range s.balls {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Apply dispatches a client command.
func (s *Simulation) Apply(cmd Command) error {
	switch cmd.Type {
	case CmdPointerDown:
		s.PointerDown(cmd.Pos)
	case CmdPointerMove:
		s.UpdateAim(cmd.Pos)
	case CmdPointerUp:
		s.Release(cmd.Pos)
	case CmdSelectBall:
		s.Choose(cmd.ID)
	case CmdDeselect:
		s.Deselect()
	case CmdReset:
		s.Reset()
	default:
		return ErrUnknownCommand
	}
	return nil
}

func (s *Simulation) emit(e Event) {
	s.events = append(s.events, e)
}

func (s *Simulation) DrainEvents() []Event {
	out := s.events
	s.events = nil
	return out
}

// Snapshot captures the table for clients and persistence.
func (s *Simulation) Snapshot() any {
	return s.TableSnapshot()
}

func (s *Simulation) TableSnapshot() TableSnapshot {
	snap := TableSnapshot{
		Kind:           KindPool,
		Width:          s.opts.Width,
		Height:         s.opts.Height,
		BallRadius:     s.opts.BallRadius,
		Rack:           s.rack,
		Balls:          make([]BallState, 0, len(s.balls)),
		Holes:          append([]Hole(nil), s.holes...),
		Phase:          s.Phase().String(),
		Lines:          []Line{},
		LastMovementMs: s.idle.LastMovement.Milliseconds(),
	}
	for _, b := range s.balls {
		v := s.world.Velocity(b.Body)
		snap.Balls = append(snap.Balls, BallState{
			ID:       b.ID,
			Position: s.world.Position(b.Body),
			Velocity: v,
			Speed:    v.Magnitude(),
		})
	}
	if s.aim.Selected != nil && !s.aim.Selected.Pocketed {
		id := s.aim.Selected.ID
		snap.SelectedBallID = &id
	}
	if o, ok := s.canvas.(*Overlay); ok {
		snap.Lines = o.Lines()
	}
	return snap
}
