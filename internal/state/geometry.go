package state

import "math"

// Vec2 represents a 2D point or direction shared across player and enemy state.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns the component-wise difference.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale multiplies both components by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Length returns the Euclidean magnitude.
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Normalize scales the vector to unit length. The zero vector stays zero so
// diagonal input never moves faster than a cardinal one and idle input is
// a no-op rather than NaN.
func (v Vec2) Normalize() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// DistanceTo returns the Euclidean distance between two points.
func (v Vec2) DistanceTo(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
