package game

import "time"

// Table geometry and behaviour constants for the pool table.
const (
	BallSizeDivisor   = 50.0 // ball radius = table width / 50
	HoleSizeFactor    = 1.5  // hole radius = 1.5 * ball radius
	HoleInsetDivisor  = 5.0  // corner holes sit holeRadius/5 inside the corner
	CaptureFactor     = 2.0  // pocketed when centre is within 2 * ball radius
	RackSpacingFactor = 1.7
	RackRows          = 4
	RackSize          = 1 + RackRows*(RackRows+1)/2 // cue + pyramid = 11
	CueBallXFraction  = 0.3
	RackApexXFraction = 0.7

	StrikeGain    = 5.0
	PreviewLength = 6000.0

	MovingSpeed   = 2.0
	StillSpeed    = 0.5
	IdleStopAfter = 10 * time.Second

	BallBounce = 0.8
	BallDrag   = 0.7
)
