// Package vector defines the three-axis offset type used for every labware
// offset and every position reported by the robot.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFinite is returned when a component is NaN or infinite.
var ErrNotFinite = errors.New("vector component is not a finite number")

// Vector3 is an offset or position in robot deck coordinates, in millimetres.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Zero is the identity offset.
var Zero = Vector3{}

// New builds a Vector3 and rejects non-finite components.
func New(x, y, z float64) (Vector3, error) {
	v := Vector3{X: x, Y: y, Z: z}
	if err := v.Validate(); err != nil {
		return Zero, err
	}
	return v, nil
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale multiplies every component by f.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// IsZero reports whether v is the identity offset.
func (v Vector3) IsZero() bool {
	return v == Zero
}

// Validate rejects NaN and infinite components.
func (v Vector3) Validate() error {
	for axis, c := range map[string]float64{"x": v.X, "y": v.Y, "z": v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: %s=%v", ErrNotFinite, axis, c)
		}
	}
	return nil
}

// Round returns v with every component rounded to the given number of decimals.
func (v Vector3) Round(decimals int) Vector3 {
	p := math.Pow(10, float64(decimals))
	r := func(f float64) float64 { return math.Round(f*p) / p }
	return Vector3{X: r(v.X), Y: r(v.Y), Z: r(v.Z)}
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Ptr returns a pointer to a copy of v.
func (v Vector3) Ptr() *Vector3 {
	return &v
}

// Equal compares two optional vectors.
func Equal(a, b *Vector3) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
