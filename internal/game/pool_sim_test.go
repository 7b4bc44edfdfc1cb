package game

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/playmatatu/pooltable/internal/physics"
)

type manualClock struct {
	now time.Duration
}

func (c *manualClock) Now() time.Duration { return c.now }

// Helper to build a racked 1000x700 table with radius-10 balls.
func setupTable(t *testing.T) (*Simulation, *physics.World, *manualClock) {
	t.Helper()
	world := physics.NewWorld(1000, 700)
	clock := &manualClock{}
	opts := Options{Width: 1000, Height: 700, BallRadius: 10}
	sim := NewSimulation(world, clock, nil, opts)
	sim.OnSetup()
	return sim, world, clock
}

func TestSetupRacksElevenBalls(t *testing.T) {
	sim, world, _ := setupTable(t)

	if got := len(sim.Balls()); got != RackSize {
		t.Fatalf("balls after setup = %d, want %d", got, RackSize)
	}
	if world.Len() != RackSize {
		t.Errorf("world bodies = %d, want %d", world.Len(), RackSize)
	}
	if got := len(sim.Holes()); got != 6 {
		t.Errorf("holes = %d, want 6", got)
	}
	if sim.Rack() != 1 {
		t.Errorf("rack = %d, want 1", sim.Rack())
	}

	events := sim.DrainEvents()
	if len(events) != 1 || events[0].Type != EventRack {
		t.Errorf("expected a single rack event, got %+v", events)
	}
}

func TestScenarioStrikeFromBallCentre(t *testing.T) {
	sim, world, _ := setupTable(t)
	balls := sim.Balls()
	b := balls[5]
	centre := world.Position(b.Body)

	if !sim.Select(b, centre) {
		t.Fatal("select at ball centre should succeed")
	}
	if !sim.Release(centre.Plus(physics.NewVec2(-20, -20))) {
		t.Fatal("release while aiming should strike")
	}

	v := world.Velocity(b.Body)
	if v.X != 100 || v.Y != 100 {
		t.Errorf("velocity = (%v,%v), want (100,100)", v.X, v.Y)
	}
	if sim.Phase() != PhaseIdle {
		t.Errorf("phase after strike = %s, want idle", sim.Phase())
	}
}

func TestStrikeReplacesPriorVelocity(t *testing.T) {
	sim, world, _ := setupTable(t)
	b := sim.Balls()[0]
	pos := world.Position(b.Body)

	world.SetVelocity(b.Body, physics.NewVec2(-300, 42))
	sim.Select(b, pos.Plus(physics.NewVec2(3, 4)))
	if !world.Velocity(b.Body).IsZero() {
		t.Errorf("select should zero the ball velocity")
	}
	world.SetVelocity(b.Body, physics.NewVec2(7, 7))

	sim.Release(pos.Plus(physics.NewVec2(13, -6)))

	want := physics.NewVec2((3-13)*StrikeGain, (4+6)*StrikeGain)
	if got := world.Velocity(b.Body); got != want {
		t.Errorf("velocity = %+v, want %+v", got, want)
	}
}

func TestStrikeRecordsMovementAndEvent(t *testing.T) {
	sim, world, clock := setupTable(t)
	sim.DrainEvents()
	b := sim.Balls()[0]
	pos := world.Position(b.Body)

	clock.now = 4 * time.Second
	sim.Select(b, pos)
	sim.Release(pos.Plus(physics.NewVec2(10, 0)))

	if sim.Idle().LastMovement != 4*time.Second {
		t.Errorf("last movement = %v, want 4s", sim.Idle().LastMovement)
	}
	events := sim.DrainEvents()
	if len(events) != 1 || events[0].Type != EventStrike || events[0].BallID != b.ID {
		t.Fatalf("expected strike event for ball %d, got %+v", b.ID, events)
	}
	if events[0].Velocity.X != -50 {
		t.Errorf("strike event velocity x = %v, want -50", events[0].Velocity.X)
	}
}

func TestPocketingRemovesBallOnce(t *testing.T) {
	sim, world, clock := setupTable(t)
	sim.DrainEvents()
	b := sim.Balls()[3]
	hole := sim.Holes()[0]

	world.SetPosition(b.Body, hole.Position)
	clock.now = time.Second
	sim.OnTick(clock.now)

	if got := len(sim.Balls()); got != RackSize-1 {
		t.Fatalf("balls after pocket = %d, want %d", got, RackSize-1)
	}
	if _, ok := sim.BallByID(b.ID); ok {
		t.Error("pocketed ball still present")
	}
	if world.Exists(b.Body) {
		t.Error("pocketed ball body should be destroyed")
	}

	events := sim.DrainEvents()
	pockets := 0
	for _, e := range events {
		if e.Type == EventPocket {
			pockets++
			if e.TargetID != hole.ID {
				t.Errorf("pocket hole = %d, want %d", e.TargetID, hole.ID)
			}
		}
	}
	if pockets != 1 {
		t.Errorf("pocket events = %d, want 1", pockets)
	}

	sim.OnTick(2 * time.Second)
	if got := len(sim.Balls()); got != RackSize-1 {
		t.Errorf("ball count changed without pocketing: %d", got)
	}
}

func TestBallCountNonIncreasingUntilReset(t *testing.T) {
	sim, world, clock := setupTable(t)
	hole := sim.Holes()[4]

	prev := len(sim.Balls())
	for i := 0; i < RackSize; i++ {
		b := sim.Balls()[0]
		world.SetPosition(b.Body, hole.Position)
		clock.now += 16 * time.Millisecond
		sim.OnTick(clock.now)

		n := len(sim.Balls())
		if i < RackSize-1 {
			if n > prev {
				t.Fatalf("ball count increased from %d to %d", prev, n)
			}
			if n != prev-1 {
				t.Fatalf("expected one ball pocketed, count %d -> %d", prev, n)
			}
		}
		prev = n
	}

	if got := len(sim.Balls()); got != RackSize {
		t.Errorf("balls after clearing table = %d, want re-rack to %d", got, RackSize)
	}
	if sim.Rack() != 2 {
		t.Errorf("rack = %d, want 2", sim.Rack())
	}
	if world.Len() != RackSize {
		t.Errorf("world bodies = %d, want %d", world.Len(), RackSize)
	}
}

func TestReleaseAfterPocketIsNoop(t *testing.T) {
	sim, world, clock := setupTable(t)
	b := sim.Balls()[2]
	pos := world.Position(b.Body)

	if !sim.Select(b, pos) {
		t.Fatal("select failed")
	}
	world.SetPosition(b.Body, sim.Holes()[1].Position)
	clock.now = time.Second
	sim.OnTick(clock.now)
	sim.DrainEvents()

	if sim.Release(pos.Plus(physics.NewVec2(-50, 0))) {
		t.Error("release of a pocketed ball should be a no-op")
	}
	for _, e := range sim.DrainEvents() {
		if e.Type == EventStrike {
			t.Error("no strike event expected")
		}
	}
	if sim.Phase() != PhaseIdle {
		t.Errorf("phase = %s, want idle", sim.Phase())
	}
}

func TestIdleStopAfterTimeout(t *testing.T) {
	sim, world, clock := setupTable(t)
	b := sim.Balls()[0]
	world.SetVelocity(b.Body, physics.NewVec2(0.3, 0))

	clock.now = 10 * time.Second
	sim.OnTick(clock.now)
	if world.Velocity(b.Body).IsZero() {
		t.Fatal("velocity zeroed before the timeout elapsed")
	}

	clock.now = 10*time.Second + time.Millisecond
	sim.OnTick(clock.now)
	if !world.Velocity(b.Body).IsZero() {
		t.Errorf("velocity = %+v, want zero after idle stop", world.Velocity(b.Body))
	}

	found := false
	for _, e := range sim.DrainEvents() {
		if e.Type == EventIdleStop {
			found = true
		}
	}
	if !found {
		t.Error("expected idle_stop event")
	}
}

func TestIdleStopWaitsWhileBallsMove(t *testing.T) {
	sim, world, clock := setupTable(t)
	b := sim.Balls()[0]

	// Between still and moving thresholds: does not refresh the timer but
	// keeps the table unsettled.
	world.SetVelocity(b.Body, physics.NewVec2(1.5, 0))
	clock.now = 30 * time.Second
	sim.OnTick(clock.now)
	if world.Velocity(b.Body).IsZero() {
		t.Error("unsettled table must not be stopped")
	}

	world.SetVelocity(b.Body, physics.NewVec2(0, 3))
	sim.OnTick(clock.now)
	if sim.Idle().LastMovement != clock.now {
		t.Errorf("fast ball should refresh last movement")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	sim, world, _ := setupTable(t)
	first := sim.TableSnapshot()

	sim.Reset()
	sim.Reset()
	second := sim.TableSnapshot()

	if len(first.Balls) != len(second.Balls) {
		t.Fatalf("ball counts differ: %d vs %d", len(first.Balls), len(second.Balls))
	}
	for i := range first.Balls {
		if first.Balls[i].Position != second.Balls[i].Position {
			t.Errorf("ball %d position differs after reset", i)
		}
	}
	if world.Len() != RackSize {
		t.Errorf("world leaked bodies: %d", world.Len())
	}
}

func TestSnapshotReflectsAim(t *testing.T) {
	sim, world, _ := setupTable(t)
	b := sim.Balls()[1]
	pos := world.Position(b.Body)

	sim.PointerDown(pos)
	sim.UpdateAim(pos.Plus(physics.NewVec2(30, 40)))

	snap := sim.TableSnapshot()
	if snap.Phase != "aiming" {
		t.Errorf("phase = %q, want aiming", snap.Phase)
	}
	if snap.SelectedBallID == nil || *snap.SelectedBallID != b.ID {
		t.Errorf("selected = %v, want %d", snap.SelectedBallID, b.ID)
	}
	if len(snap.Lines) != 2 {
		t.Fatalf("overlay lines = %d, want 2", len(snap.Lines))
	}

	sim.Release(pos)
	if n := len(sim.TableSnapshot().Lines); n != 0 {
		t.Errorf("overlay should be cleared after release, got %d lines", n)
	}
}

func TestApplyDispatchesCommands(t *testing.T) {
	sim, world, _ := setupTable(t)
	b := sim.Balls()[0]
	pos := world.Position(b.Body)

	steps := []Command{
		{Type: CmdPointerDown, Pos: pos},
		{Type: CmdPointerMove, Pos: pos.Plus(physics.NewVec2(5, 0))},
		{Type: CmdPointerUp, Pos: pos.Plus(physics.NewVec2(10, 0))},
	}
	for _, c := range steps {
		if err := sim.Apply(c); err != nil {
			t.Fatalf("apply %s: %v", c.Type, err)
		}
	}
	if v := world.Velocity(b.Body); math.Abs(v.X+50) > 1e-9 {
		t.Errorf("velocity x = %v, want -50", v.X)
	}

	if err := sim.Apply(Command{Type: "fly"}); err != ErrUnknownCommand {
		t.Errorf("unknown command err = %v", err)
	}
}

func TestBallInsideTwoHolesPocketedOnce(t *testing.T) {
	world := physics.NewWorld(40, 400)
	clock := &manualClock{}
	sim := NewSimulation(world, clock, nil, Options{Width: 40, Height: 400, BallRadius: 10})
	sim.OnSetup()
	sim.DrainEvents()

	b := sim.Balls()[0]
	spot := physics.NewVec2(10, 10)
	holes := sim.Holes()
	if spot.DistanceTo(holes[0].Position) >= holes[0].CaptureRadius ||
		spot.DistanceTo(holes[4].Position) >= holes[4].CaptureRadius {
		t.Fatal("spot should sit inside holes 0 and 4")
	}

	world.SetPosition(b.Body, spot)
	clock.now = time.Second
	sim.OnTick(clock.now)

	var pockets []Event
	for _, e := range sim.DrainEvents() {
		if e.Type == EventPocket {
			pockets = append(pockets, e)
		}
	}
	if len(pockets) != 1 {
		t.Fatalf("pocket events = %d, want 1", len(pockets))
	}
	if pockets[0].BallID != b.ID || pockets[0].TargetID != holes[0].ID {
		t.Errorf("pocket = %+v, want ball %d into hole %d", pockets[0], b.ID, holes[0].ID)
	}
	if got := len(sim.Balls()); got != RackSize-1 {
		t.Errorf("balls = %d, want %d", got, RackSize-1)
	}
	if world.Len() != RackSize-1 {
		t.Errorf("world bodies = %d, want %d", world.Len(), RackSize-1)
	}
}

func TestStaleBallCannotBeStruckAfterReset(t *testing.T) {
	sim, _, _ := setupTable(t)
	old := sim.Balls()[0]

	sim.Reset()
	sim.DrainEvents()

	if !old.Pocketed {
		t.Error("balls from the previous rack should be marked gone")
	}
	if sim.Select(old, physics.Vec2{}) {
		t.Error("select of a ball from the previous rack should fail")
	}
	if sim.Release(physics.NewVec2(-10, 0)) {
		t.Error("release without a live selection should be a no-op")
	}
	for _, e := range sim.DrainEvents() {
		if e.Type == EventStrike {
			t.Errorf("unexpected strike %+v", e)
		}
	}
}

func TestOffTablePointerKeepsStrikeBounded(t *testing.T) {
	sim, world, clock := setupTable(t)
	b := sim.Balls()[0]
	centre := world.Position(b.Body)

	if !sim.PointerDown(centre) {
		t.Fatal("pointer down at ball centre should select it")
	}
	if !sim.Release(physics.NewVec2(-1e308, 0)) {
		t.Fatal("release should strike")
	}

	limit := math.Hypot(1000, 700) * StrikeGain
	for i := 0; i < 5; i++ {
		world.Step(16 * time.Millisecond)
		clock.now += 16 * time.Millisecond
		sim.OnTick(clock.now)
	}
	for _, bs := range sim.TableSnapshot().Balls {
		if !bs.Velocity.IsFinite() || bs.Speed > limit {
			t.Errorf("ball %d velocity = %+v", bs.ID, bs.Velocity)
		}
	}
	if _, err := json.Marshal(sim.Snapshot()); err != nil {
		t.Errorf("snapshot does not encode: %v", err)
	}
}
