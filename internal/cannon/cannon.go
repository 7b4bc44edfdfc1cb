// Package cannon implements the cannon range: a projectile fired straight up
// at a target, pulled around by attractor circles the player places.
package cannon

import (
	"log"
	"time"

	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/physics"
)

// KindCannon identifies the cannon range scene.
const KindCannon = "cannon"

const (
	FieldWidth  = 800.0
	FieldHeight = 550.0

	ProjectileRadius = 10.0
	LaunchSpeed      = 300.0

	AttractRange    = 100.0
	AttractStrength = 200.0
	BounceSpeed     = 200.0

	DefaultCircleRadius = 20.0
	MinCircleRadius     = 10.0
	MaxCircleRadius     = 50.0
)

// Command types understood by the range.
const (
	CmdFire         = "fire"
	CmdReset        = "reset"
	CmdAddCircle    = "add_circle"
	CmdSelectCircle = "select_circle"
	CmdDeleteCircle = "delete_circle"
	CmdResizeCircle = "resize_circle"
	CmdMoveCircle   = "move_circle"
)

var (
	cannonPos   = physics.NewVec2(400, 530)
	muzzlePos   = physics.NewVec2(400, 520)
	circleSpawn = physics.NewVec2(400, 275)
)

// Circle is an immovable attractor.
type Circle struct {
	ID     int
	Body   physics.BodyID
	Radius float64
}

// CircleState is the serialisable view of a circle.
type CircleState struct {
	ID       int          `json:"id"`
	Position physics.Vec2 `json:"position"`
	Radius   float64      `json:"radius"`
}

// ProjectileState is the serialisable view of the projectile.
type ProjectileState struct {
	Position physics.Vec2 `json:"position"`
	Velocity physics.Vec2 `json:"velocity"`
	Radius   float64      `json:"radius"`
	Active   bool         `json:"active"`
}

// Snapshot is the range's serialisable view.
type Snapshot struct {
	Kind             string          `json:"kind"`
	Width            float64         `json:"width"`
	Height           float64         `json:"height"`
	Target           physics.Rect    `json:"target"`
	Cannon           physics.Rect    `json:"cannon"`
	Projectile       ProjectileState `json:"projectile"`
	Circles          []CircleState   `json:"circles"`
	SelectedCircleID *int            `json:"selected_circle_id,omitempty"`
	Hits             int             `json:"hits"`
}

// Range is the cannon scene. Like the pool table it expects the host to
// serialise ticks and commands.
type Range struct {
	world physics.Engine

	target     physics.Rect
	cannon     physics.Rect
	projectile physics.BodyID
	active     bool

	circles  []*Circle
	selected *Circle
	nextID   int
	hits     int

	now    time.Duration
	events []game.Event
}

// NewRange creates a range on the given world. The world should be
// FieldWidth x FieldHeight.
func NewRange(world physics.Engine) *Range {
	return &Range{
		world:  world,
		target: physics.Rect{Center: physics.NewVec2(400, 20), Width: 120, Height: 20},
		cannon: physics.Rect{Center: cannonPos, Width: 40, Height: 20},
		nextID: 1,
	}
}

func (r *Range) Kind() string { return KindCannon }

// OnSetup places the projectile in the cannon.
func (r *Range) OnSetup() {
	r.projectile = r.world.CreateCircle(muzzlePos, ProjectileRadius, physics.BodyOptions{
		CollideWorldBounds: true,
		Bounce:             1,
	})
	r.resetProjectile()
}

// Active reports whether the projectile is in flight.
func (r *Range) Active() bool { return r.active }

// Circles returns the attractors in creation order.
func (r *Range) Circles() []*Circle { return r.circles }

// Fire launches the projectile, or puts it back if it is already flying.
func (r *Range) Fire() {
	if r.active {
		r.resetProjectile()
		r.emit(game.Event{Type: game.EventReset})
		return
	}
	r.active = true
	v := physics.NewVec2(0, -LaunchSpeed)
	r.world.SetVelocity(r.projectile, v)
	r.emit(game.Event{Type: game.EventFire, Position: r.world.Position(r.projectile), Velocity: v})
}

// Reset returns the projectile to the muzzle.
func (r *Range) Reset() {
	r.resetProjectile()
	r.emit(game.Event{Type: game.EventReset})
}

func (r *Range) resetProjectile() {
	r.active = false
	r.world.SetPosition(r.projectile, muzzlePos)
	r.world.SetVelocity(r.projectile, physics.Vec2{})
}

// AddCircle spawns an attractor in the middle of the field and selects it.
func (r *Range) AddCircle() *Circle {
	c := &Circle{
		ID:     r.nextID,
		Radius: DefaultCircleRadius,
		Body: r.world.CreateCircle(circleSpawn, DefaultCircleRadius, physics.BodyOptions{
			Immovable: true,
			Bounce:    1,
		}),
	}
	r.nextID++
	r.circles = append(r.circles, c)
	r.selected = c
	return c
}

// SelectCircle makes the circle with id the selection.
func (r *Range) SelectCircle(id int) bool {
	c, ok := r.circle(id)
	if !ok {
		return false
	}
	r.selected = c
	return true
}

// Selected returns the selected circle.
func (r *Range) Selected() (*Circle, bool) {
	return r.selected, r.selected != nil
}

// DeleteSelected removes the selected circle, if any.
func (r *Range) DeleteSelected() bool {
	if r.selected == nil {
		return false
	}
	r.world.Destroy(r.selected.Body)
	kept := make([]*Circle, 0, len(r.circles))
	for _, c := range r.circles {
		if c != r.selected {
			kept = append(kept, c)
		}
	}
	r.circles = kept
	r.selected = nil
	return true
}

// ResizeSelected sets the selected circle's radius, clamped to the slider range.
func (r *Range) ResizeSelected(radius float64) bool {
	if r.selected == nil {
		return false
	}
	if radius < MinCircleRadius {
		radius = MinCircleRadius
	}
	if radius > MaxCircleRadius {
		radius = MaxCircleRadius
	}
	r.selected.Radius = radius
	r.world.SetRadius(r.selected.Body, radius)
	return true
}

// MoveCircle drags a circle to pos, kept inside the field, and selects it.
func (r *Range) MoveCircle(id int, pos physics.Vec2) bool {
	c, ok := r.circle(id)
	if !ok {
		return false
	}
	r.selected = c
	r.world.SetPosition(c.Body, pos.Clamp(FieldWidth, FieldHeight))
	return true
}

func (r *Range) circle(id int) (*Circle, bool) {
	for _, c := range r.circles {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// OnTick applies attraction, circle bounces and the target check.
func (r *Range) OnTick(now time.Duration) {
	r.now = now
	if !r.active {
		return
	}

	pos := r.world.Position(r.projectile)
	vel := r.world.Velocity(r.projectile)
	for _, c := range r.circles {
		delta := r.world.Position(c.Body).Minus(pos)
		dist := delta.Magnitude()
		if dist == 0 || dist >= AttractRange {
			continue
		}
		force := AttractStrength / dist
		vel = vel.Plus(delta.Times(force / dist))
	}
	r.world.SetVelocity(r.projectile, vel)

	for _, ct := range r.world.Contacts() {
		var other physics.BodyID
		switch r.projectile {
		case ct.A:
			other = ct.B
		case ct.B:
			other = ct.A
		default:
			continue
		}
		for _, c := range r.circles {
			if c.Body != other {
				continue
			}
			away := r.world.Position(r.projectile).Minus(r.world.Position(c.Body)).Normalize()
			r.world.SetVelocity(r.projectile, away.Times(BounceSpeed))
		}
	}

	bounds := physics.CircleBounds(r.world.Position(r.projectile), ProjectileRadius)
	if bounds.Intersects(r.target) {
		r.hits++
		log.Printf("[CANNON] target hit (%d total)", r.hits)
		r.emit(game.Event{Type: game.EventHit, Position: bounds.Center})
		r.resetProjectile()
	}
}

// Apply dispatches a client command.
func (r *Range) Apply(cmd game.Command) error {
	switch cmd.Type {
	case CmdFire:
		r.Fire()
	case CmdReset:
		r.Reset()
	case CmdAddCircle:
		r.AddCircle()
	case CmdSelectCircle:
		r.SelectCircle(cmd.ID)
	case CmdDeleteCircle:
		r.DeleteSelected()
	case CmdResizeCircle:
		r.ResizeSelected(cmd.Radius)
	case CmdMoveCircle:
		r.MoveCircle(cmd.ID, cmd.Pos)
	default:
		return game.ErrUnknownCommand
	}
	return nil
}

func (r *Range) emit(e game.Event) {
	e.At = r.now
	r.events = append(r.events, e)
}

func (r *Range) DrainEvents() []game.Event {
	out := r.events
	r.events = nil
	return out
}

func (r *Range) Snapshot() any {
	return r.RangeSnapshot()
}

func (r *Range) RangeSnapshot() Snapshot {
	snap := Snapshot{
		Kind:   KindCannon,
		Width:  FieldWidth,
		Height: FieldHeight,
		Target: r.target,
		Cannon: r.cannon,
		Projectile: ProjectileState{
			Position: r.world.Position(r.projectile),
			Velocity: r.world.Velocity(r.projectile),
			Radius:   ProjectileRadius,
			Active:   r.active,
		},
		Circles: make([]CircleState, 0, len(r.circles)),
		Hits:    r.hits,
	}
	for _, c := range r.circles {
		snap.Circles = append(snap.Circles, CircleState{ID: c.ID, Position: r.world.Position(c.Body), Radius: c.Radius})
	}
	if r.selected != nil {
		id := r.selected.ID
		snap.SelectedCircleID = &id
	}
	return snap
}
