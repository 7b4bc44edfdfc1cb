package game

import (
	"testing"
	"time"
)

func TestRackPositionsSpacing(t *testing.T) {
	sizes := [][2]float64{{1000, 700}, {800, 550}, {1920, 1080}, {300, 200}}
	for _, sz := range sizes {
		r := sz[0] / BallSizeDivisor
		pos := RackPositions(sz[0], sz[1], r)
		if len(pos) != RackSize {
			t.Fatalf("%vx%v: rack size = %d, want %d", sz[0], sz[1], len(pos), RackSize)
		}

		minSpacing := RackSpacingFactor * r
		pyramid := pos[1:]
		for i := 0; i < len(pyramid); i++ {
			for j := i + 1; j < len(pyramid); j++ {
				d := pyramid[i].DistanceTo(pyramid[j])
				if d < minSpacing-1e-9 {
					t.Errorf("%vx%v: balls %d and %d are %.3f apart, want >= %.3f", sz[0], sz[1], i+1, j+1, d, minSpacing)
				}
			}
		}
	}
}

func TestRackLayout(t *testing.T) {
	pos := RackPositions(1000, 700, 10)

	if pos[0].X != 300 || pos[0].Y != 350 {
		t.Errorf("cue ball = %+v, want (300,350)", pos[0])
	}
	if pos[1].X != 700 || pos[1].Y != 350 {
		t.Errorf("apex = %+v, want (700,350)", pos[1])
	}
	// Last row is four balls centred on mid-height.
	last := pos[7:]
	sumY := 0.0
	for _, p := range last {
		sumY += p.Y
		if p.X != 700+3*17 {
			t.Errorf("last row x = %v, want %v", p.X, 700+3*17)
		}
	}
	if avg := sumY / 4; avg < 349.999 || avg > 350.001 {
		t.Errorf("last row centre y = %v, want 350", avg)
	}
}

func TestNewHoles(t *testing.T) {
	holes := NewHoles(1000, 700, 10)
	if len(holes) != 6 {
		t.Fatalf("holes = %d, want 6", len(holes))
	}
	// hole radius 15, inset 3
	if holes[0].Position.X != 3 || holes[0].Position.Y != 3 {
		t.Errorf("top-left hole = %+v", holes[0].Position)
	}
	if holes[3].Position.X != 997 || holes[3].Position.Y != 697 {
		t.Errorf("bottom-right hole = %+v", holes[3].Position)
	}
	if holes[5].Position.X != 500 || holes[5].Position.Y != 700 {
		t.Errorf("bottom-middle hole = %+v", holes[5].Position)
	}
	for _, h := range holes {
		if h.CaptureRadius != 20 || h.Radius != 15 {
			t.Errorf("hole %d radii = %v/%v, want 15/20", h.ID, h.Radius, h.CaptureRadius)
		}
	}
}

func TestDefaultOptionsDerivesRadius(t *testing.T) {
	o := DefaultOptions(1000, 700)
	if o.BallRadius != 20 {
		t.Errorf("ball radius = %v, want 20", o.BallRadius)
	}
	if o.StrikeGain != StrikeGain || o.IdleStopAfter != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", o)
	}
}

func TestIdleTracker(t *testing.T) {
	tr := NewIdleTracker(MovingSpeed, StillSpeed, IdleStopAfter, 0)

	tr.BeginTick()
	tr.Observe(0.2, time.Second)
	if !tr.Settled() {
		t.Error("slow ball should leave the table settled")
	}
	if tr.ShouldStop(10 * time.Second) {
		t.Error("stop must require strictly more than the timeout")
	}
	if !tr.ShouldStop(11 * time.Second) {
		t.Error("expected stop after timeout")
	}

	tr.BeginTick()
	tr.Observe(2.5, 12*time.Second)
	if tr.Settled() || tr.LastMovement != 12*time.Second {
		t.Errorf("fast ball should unsettle and refresh: %+v", tr)
	}
}
