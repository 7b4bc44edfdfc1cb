package game

import (
	"math"

	"github.com/playmatatu/pooltable/internal/physics"
)

// AimPhase is the aim/strike controller state.
type AimPhase int

const (
	PhaseIdle AimPhase = iota
	PhaseSelected
	PhaseAiming
)

func (p AimPhase) String() string {
	switch p {
	case PhaseSelected:
		return "selected"
	case PhaseAiming:
		return "aiming"
	default:
		return "idle"
	}
}

// AimState holds the current selection and drag origin.
type AimState struct {
	Selected  *Ball
	Dragging  bool
	DragStart physics.Vec2
}

// AimPreview is the advisory geometry shown while dragging.
type AimPreview struct {
	Aim        Line `json:"aim"`
	Trajectory Line `json:"trajectory"`
}

// ComputeAimPreview returns the forward segment (ball to pointer) and the
// mirrored trajectory segment of fixed length.
func ComputeAimPreview(ball, pointer physics.Vec2) AimPreview {
	angle := ball.AngleTo(pointer)
	end := ball.Plus(physics.FromAngle(angle+math.Pi, PreviewLength))
	return AimPreview{
		Aim:        Line{From: ball, To: pointer, Color: ColorAim},
		Trajectory: Line{From: ball, To: end, Color: ColorTrajectory},
	}
}

// StrikeVelocity is the velocity a release imparts.
func StrikeVelocity(dragStart, release physics.Vec2, gain float64) physics.Vec2 {
	return dragStart.Minus(release).Times(gain)
}

// Phase reports the controller state.
func (s *Simulation) Phase() AimPhase {
	switch {
	case s.aim.Selected == nil:
		return PhaseIdle
	case s.aim.Dragging:
		return PhaseAiming
	default:
		return PhaseSelected
	}
}

// Aim returns a copy of the aim state.
func (s *Simulation) Aim() AimState { return s.aim }

// Selected returns the selected ball, if any.
func (s *Simulation) Selected() (*Ball, bool) {
	if s.aim.Selected == nil {
		return nil, false
	}
	return s.aim.Selected, true
}

// Choose marks a ball as selected without starting a drag.
func (s *Simulation) Choose(ballID int) bool {
	b, ok := s.BallByID(ballID)
	if !ok {
		return false
	}
	s.clearAim()
	s.aim.Selected = b
	return true
}

// Select starts aiming with b when the pointer is on it. Any previous
// selection is replaced.
func (s *Simulation) Select(b *Ball, pointer physics.Vec2) bool {
	if b == nil || b.Pocketed || !s.world.Exists(b.Body) {
		return false
	}
	pointer = s.clampPointer(pointer)
	if pointer.DistanceTo(s.world.Position(b.Body)) >= b.Radius {
		return false
	}
	s.clearAim()
	s.world.SetVelocity(b.Body, physics.Vec2{})
	s.aim = AimState{Selected: b, Dragging: true, DragStart: pointer}
	return true
}

// PointerDown selects the closest live ball under the pointer.
func (s *Simulation) PointerDown(pointer physics.Vec2) bool {
	pointer = s.clampPointer(pointer)
	if sel := s.aim.Selected; sel != nil && !s.aim.Dragging {
		if s.Select(sel, pointer) {
			return true
		}
	}
	var best *Ball
	bestDist := math.Inf(1)
	for _, b := range s.balls {
		d := pointer.DistanceTo(s.world.Position(b.Body))
		if d < b.Radius && d < bestDist {
			best, bestDist = b, d
		}
	}
	if best == nil {
		return false
	}
	return s.Select(best, pointer)
}

// UpdateAim redraws the aim overlay for the current pointer.
func (s *Simulation) UpdateAim(pointer physics.Vec2) (AimPreview, bool) {
	sel := s.aim.Selected
	if sel == nil || !s.aim.Dragging || sel.Pocketed {
		return AimPreview{}, false
	}
	p := ComputeAimPreview(s.world.Position(sel.Body), s.clampPointer(pointer))
	s.canvas.Clear()
	s.canvas.DrawLine(p.Aim.From, p.Aim.To, p.Aim.Color)
	s.canvas.DrawLine(p.Trajectory.From, p.Trajectory.To, p.Trajectory.Color)
	return p, true
}

// Release strikes the selected ball. It is a no-op unless aiming, and when
// the ball was pocketed during the drag.
func (s *Simulation) Release(pointer physics.Vec2) bool {
	sel := s.aim.Selected
	if sel == nil || !s.aim.Dragging {
		return false
	}
	if sel.Pocketed || !s.world.Exists(sel.Body) {
		s.clearAim()
		return false
	}

	v := StrikeVelocity(s.aim.DragStart, s.clampPointer(pointer), s.opts.StrikeGain)
	s.world.SetVelocity(sel.Body, v)

	now := s.clock.Now()
	s.idle.Touch(now)
	s.emit(Event{Type: EventStrike, BallID: sel.ID, Position: s.world.Position(sel.Body), Velocity: v, At: now})
	s.clearAim()
	return true
}

// Deselect cancels any selection or drag.
func (s *Simulation) Deselect() {
	s.clearAim()
}

// clampPointer keeps pointer input on the table so a strike stays bounded.
func (s *Simulation) clampPointer(p physics.Vec2) physics.Vec2 {
	if !p.IsFinite() {
		return s.aim.DragStart
	}
	return p.Clamp(s.opts.Width, s.opts.Height)
}

func (s *Simulation) clearAim() {
	s.aim = AimState{}
	s.canvas.Clear()
}
