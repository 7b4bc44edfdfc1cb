package physics

import (
	"math"
	"time"
)

// BodyID identifies a body inside a World. IDs are never reused.
type BodyID int

// BodyOptions mirrors the arcade-body knobs the scenes rely on.
type BodyOptions struct {
	CollideWorldBounds bool
	Bounce             float64
	// Damping switches Drag from linear deceleration (px/s²) to a
	// per-second velocity multiplier.
	Damping   bool
	Drag      float64
	Immovable bool
}

// Body is a circle integrated by the World.
type Body struct {
	ID       BodyID
	Position Vec2
	Velocity Vec2
	Radius   float64
	Options  BodyOptions
}

// Contact records two bodies that touched during the last Step.
type Contact struct {
	A BodyID
	B BodyID
}

// Engine is the subset of world capabilities a scene may use.
type Engine interface {
	CreateCircle(pos Vec2, radius float64, opts BodyOptions) BodyID
	Exists(id BodyID) bool
	SetVelocity(id BodyID, v Vec2)
	Velocity(id BodyID) Vec2
	Speed(id BodyID) float64
	Position(id BodyID) Vec2
	SetPosition(id BodyID, p Vec2)
	SetRadius(id BodyID, r float64)
	Destroy(id BodyID)
	Contacts() []Contact
}

// World is a small arcade-style physics world: circles only, no gravity,
// axis-aligned bounds at (0,0)-(Width,Height).
type World struct {
	Width  float64
	Height float64

	bodies   map[BodyID]*Body
	order    []BodyID
	nextID   BodyID
	contacts []Contact
}

// NewWorld creates an empty world with the given bounds.
func NewWorld(width, height float64) *World {
	return &World{
		Width:  width,
		Height: height,
		bodies: make(map[BodyID]*Body),
		nextID: 1,
	}
}

func (w *World) CreateCircle(pos Vec2, radius float64, opts BodyOptions) BodyID {
	id := w.nextID
	w.nextID++
	w.bodies[id] = &Body{ID: id, Position: pos, Radius: radius, Options: opts}
	w.order = append(w.order, id)
	return id
}

func (w *World) Exists(id BodyID) bool {
	_, ok := w.bodies[id]
	return ok
}

// Len returns the number of live bodies.
func (w *World) Len() int {
	return len(w.order)
}

// SetVelocity ignores non-finite vectors.
func (w *World) SetVelocity(id BodyID, v Vec2) {
	if !v.IsFinite() {
		return
	}
	if b, ok := w.bodies[id]; ok {
		b.Velocity = v
	}
}

func (w *World) Velocity(id BodyID) Vec2 {
	if b, ok := w.bodies[id]; ok {
		return b.Velocity
	}
	return Vec2{}
}

func (w *World) Speed(id BodyID) float64 {
	return w.Velocity(id).Magnitude()
}

func (w *World) Position(id BodyID) Vec2 {
	if b, ok := w.bodies[id]; ok {
		return b.Position
	}
	return Vec2{}
}

// SetPosition ignores non-finite positions.
func (w *World) SetPosition(id BodyID, p Vec2) {
	if !p.IsFinite() {
		return
	}
	if b, ok := w.bodies[id]; ok {
		b.Position = p
	}
}

func (w *World) SetRadius(id BodyID, r float64) {
	if b, ok := w.bodies[id]; ok {
		b.Radius = r
	}
}

func (w *World) Destroy(id BodyID) {
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Contacts returns the body pairs that collided during the last Step.
func (w *World) Contacts() []Contact {
	return w.contacts
}

// Step advances the world by dt: integrate, apply drag, clamp to bounds,
// then resolve circle overlaps.
func (w *World) Step(dt time.Duration) {
	secs := dt.Seconds()
	w.contacts = w.contacts[:0]
	if secs <= 0 {
		return
	}

	for _, id := range w.order {
		b := w.bodies[id]
		if b.Options.Immovable {
			continue
		}
		b.Position = b.Position.Plus(b.Velocity.Times(secs))
		applyDrag(b, secs)
		if b.Options.CollideWorldBounds {
			w.clampToBounds(b)
		}
	}

	for i := 0; i < len(w.order); i++ {
		a := w.bodies[w.order[i]]
		for j := i + 1; j < len(w.order); j++ {
			b := w.bodies[w.order[j]]
			if a.Options.Immovable && b.Options.Immovable {
				continue
			}
			reach := a.Radius + b.Radius
			if b.Position.Minus(a.Position).MagnitudeSquared() >= reach*reach {
				continue
			}
			resolveOverlap(a, b)
			w.contacts = append(w.contacts, Contact{A: a.ID, B: b.ID})
		}
	}
}

func applyDrag(b *Body, secs float64) {
	if b.Options.Drag <= 0 || b.Velocity.IsZero() {
		return
	}
	if b.Options.Damping {
		b.Velocity = b.Velocity.Times(math.Pow(b.Options.Drag, secs))
		return
	}
	speed := b.Velocity.Magnitude() - b.Options.Drag*secs
	if speed <= 0 {
		b.Velocity = Vec2{}
		return
	}
	b.Velocity = b.Velocity.Normalize().Times(speed)
}

func (w *World) clampToBounds(b *Body) {
	r := b.Radius
	bounce := b.Options.Bounce
	if b.Position.X-r < 0 {
		b.Position.X = r
		b.Velocity.X = math.Abs(b.Velocity.X) * bounce
	} else if b.Position.X+r > w.Width {
		b.Position.X = w.Width - r
		b.Velocity.X = -math.Abs(b.Velocity.X) * bounce
	}
	if b.Position.Y-r < 0 {
		b.Position.Y = r
		b.Velocity.Y = math.Abs(b.Velocity.Y) * bounce
	} else if b.Position.Y+r > w.Height {
		b.Position.Y = w.Height - r
		b.Velocity.Y = -math.Abs(b.Velocity.Y) * bounce
	}
}

// resolveOverlap separates two overlapping circles and, when they are
// converging, exchanges the normal velocity components (equal masses).
func resolveOverlap(a, b *Body) {
	delta := b.Position.Minus(a.Position)
	dist := delta.Magnitude()
	n := delta.Normalize()
	if dist == 0 {
		n = Vec2{X: 1}
	}
	overlap := a.Radius + b.Radius - dist

	switch {
	case a.Options.Immovable:
		b.Position = b.Position.Plus(n.Times(overlap))
		reflect(b, n.Invert())
		return
	case b.Options.Immovable:
		a.Position = a.Position.Minus(n.Times(overlap))
		reflect(a, n)
		return
	}

	a.Position = a.Position.Minus(n.Times(overlap / 2))
	b.Position = b.Position.Plus(n.Times(overlap / 2))

	// Already separating
	if b.Velocity.Minus(a.Velocity).Dot(n) >= 0 {
		return
	}

	r := n.RightNormal()
	aNormal := n.Times(a.Velocity.Dot(n))
	aTangent := r.Times(a.Velocity.Dot(r))
	bNormal := n.Times(b.Velocity.Dot(n))
	bTangent := r.Times(b.Velocity.Dot(r))

	e := math.Min(a.Options.Bounce, b.Options.Bounce)
	a.Velocity = aTangent.Plus(bNormal.Times(e)).Plus(aNormal.Times(1 - e))
	b.Velocity = bTangent.Plus(aNormal.Times(e)).Plus(bNormal.Times(1 - e))
}

// reflect bounces b off a static surface whose normal n points from b
// into the surface.
func reflect(b *Body, n Vec2) {
	vn := b.Velocity.Dot(n)
	if vn <= 0 {
		return
	}
	b.Velocity = b.Velocity.Minus(n.Times(vn * (1 + b.Options.Bounce)))
}
