// Package geom holds the logical-coordinate types shared by the protocol core.
package geom

import "fmt"

// Point is a position in logical, fractional coordinates.
type Point struct {
	X, Y float64
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// IPoint is a position in logical integer coordinates.
type IPoint struct {
	X, Y int32
}

// Add returns p + o.
func (p IPoint) Add(o IPoint) IPoint {
	return IPoint{X: p.X + o.X, Y: p.Y + o.Y}
}

// ToFloat converts p to fractional coordinates.
func (p IPoint) ToFloat() Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

// Size is a width and height in logical units.
type Size struct {
	W, H int32
}

// IsEmpty reports whether either dimension is not positive.
func (s Size) IsEmpty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rectangle is an integer rectangle anchored at its top-left corner.
type Rectangle struct {
	Loc  IPoint
	Size Size
}

// Rect builds a rectangle from its components.
func Rect(x, y, w, h int32) Rectangle {
	return Rectangle{Loc: IPoint{X: x, Y: y}, Size: Size{W: w, H: h}}
}

func (r Rectangle) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Size.W, r.Size.H, r.Loc.X, r.Loc.Y)
}
