package domain

import "math"

// Position is a 2-D canvas coordinate
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// IsFinite reports whether both coordinates are finite numbers
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Midpoint returns the arithmetic mean of the given positions. The second
// return value is false when no positions were given.
func Midpoint(positions ...Position) (Position, bool) {
	if len(positions) == 0 {
		return Position{}, false
	}
	var sum Position
	for _, p := range positions {
		sum.X += p.X
		sum.Y += p.Y
	}
	n := float64(len(positions))
	return Position{X: sum.X / n, Y: sum.Y / n}, true
}

// Dimensions is the measured size of a rendered node
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the canvas pan/zoom state
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// DefaultViewport returns the viewport used when none was saved
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1}
}

// Normalize fills a zero zoom with the default
func (v Viewport) Normalize() Viewport {
	if v.Zoom == 0 {
		v.Zoom = 1
	}
	return v
}
