package game

import (
	"time"

	"github.com/playmatatu/pooltable/internal/physics"
)

// Hole is one of the six pockets.
type Hole struct {
	ID            int          `json:"id"`
	Position      physics.Vec2 `json:"position"`
	Radius        float64      `json:"radius"`         // drawn size
	CaptureRadius float64      `json:"capture_radius"` // pocketing distance
}

// Options configures a pool table. Zero fields fall back to the package
// constants; a zero BallRadius is derived from Width.
type Options struct {
	Width         float64
	Height        float64
	BallRadius    float64
	StrikeGain    float64
	MovingSpeed   float64
	StillSpeed    float64
	IdleStopAfter time.Duration
}

// DefaultOptions returns the standard behaviour for a table of the given size.
func DefaultOptions(width, height float64) Options {
	return Options{Width: width, Height: height}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.BallRadius <= 0 {
		o.BallRadius = o.Width / BallSizeDivisor
	}
	if o.StrikeGain == 0 {
		o.StrikeGain = StrikeGain
	}
	if o.MovingSpeed == 0 {
		o.MovingSpeed = MovingSpeed
	}
	if o.StillSpeed == 0 {
		o.StillSpeed = StillSpeed
	}
	if o.IdleStopAfter == 0 {
		o.IdleStopAfter = IdleStopAfter
	}
	return o
}

// NewHoles lays out four corner pockets and two side-middle pockets.
func NewHoles(width, height, ballRadius float64) []Hole {
	hr := ballRadius * HoleSizeFactor
	capture := ballRadius * CaptureFactor
	dd := hr / HoleInsetDivisor

	positions := []physics.Vec2{
		{X: dd, Y: dd},
		{X: width - dd, Y: dd},
		{X: dd, Y: height - dd},
		{X: width - dd, Y: height - dd},
		{X: width / 2, Y: 0},
		{X: width / 2, Y: height},
	}

	holes := make([]Hole, len(positions))
	for i, p := range positions {
		holes[i] = Hole{ID: i, Position: p, Radius: hr, CaptureRadius: capture}
	}
	return holes
}

// RackPositions returns the cue ball position followed by the pyramid,
// row by row. The pyramid points towards the cue ball.
func RackPositions(width, height, ballRadius float64) []physics.Vec2 {
	pos := make([]physics.Vec2, 0, RackSize)
	midY := height / 2
	apexX := width * RackApexXFraction
	offset := ballRadius * RackSpacingFactor

	pos = append(pos, physics.NewVec2(width*CueBallXFraction, midY))
	for row := 0; row < RackRows; row++ {
		x := apexX + float64(row)*offset
		for j := 0; j <= row; j++ {
			y := midY - float64(row)*offset/2 + float64(j)*offset
			pos = append(pos, physics.NewVec2(x, y))
		}
	}
	return pos
}
