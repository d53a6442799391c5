// Package images - Rotated box geometry in normalized image coordinates.
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Point is a 2D point in normalized image coordinates.
type Point struct {
	X, Y float32
}

// RBox is a rotated rectangle parameterized by its center, size and angle.
//
// Angle is in radians about the center. It is stored as decoded and never
// normalized: a box and its copy rotated by pi describe the same rectangle
// but compare unequal field by field.
type RBox struct {
	XCenter float32 `json:"xcenter"`
	YCenter float32 `json:"ycenter"`
	Width   float32 `json:"width"`
	Height  float32 `json:"height"`
	Angle   float32 `json:"angle"`
}

func (b RBox) String() string {
	return fmt.Sprintf("RBox(center=(%f, %f) size=(%f, %f) angle=%f)",
		b.XCenter, b.YCenter, b.Width, b.Height, b.Angle)
}

// Area returns width*height, or 0 for a degenerate box.
func (b RBox) Area() float32 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Corners returns the four vertices of the box with positive winding
// (counter-clockwise when the y axis points up).
//
// Returns:
//   - [4]Point: The rotated corners, starting from the (-w/2, -h/2) corner.
//
// @example
// box := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.1}
// c := box.Corners() // c[0] == Point{0.4, 0.45}, c[2] == Point{0.6, 0.55}
func (b RBox) Corners() [4]Point {
	sin, cos := math32.Sincos(b.Angle)
	hw, hh := b.Width/2, b.Height/2
	local := [4]Point{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}

	var corners [4]Point
	for i, p := range local {
		corners[i] = Point{
			X: b.XCenter + p.X*cos - p.Y*sin,
			Y: b.YCenter + p.X*sin + p.Y*cos,
		}
	}
	return corners
}

// circumradius is the distance from the center to any corner.
func (b RBox) circumradius() float32 {
	return math32.Hypot(b.Width, b.Height) / 2
}

// IntersectionArea computes the area shared by two rotated boxes.
//
// Both boxes are convex, so the intersection is found by clipping the corners
// of a against every edge of b (Sutherland-Hodgman) and taking the shoelace
// area of what remains.
//
// Arguments:
//   - a: The subject box.
//   - b: The clipping box.
//
// Returns:
//   - float32: The intersection area, 0 when the boxes are disjoint or degenerate.
func IntersectionArea(a, b RBox) float32 {
	if a.Area() == 0 || b.Area() == 0 {
		return 0
	}
	dx, dy := a.XCenter-b.XCenter, a.YCenter-b.YCenter
	if math32.Hypot(dx, dy) > a.circumradius()+b.circumradius() {
		return 0
	}

	ca, cb := a.Corners(), b.Corners()
	polygon := make([]Point, 0, 8)
	polygon = append(polygon, ca[:]...)
	for i := range cb {
		polygon = clipPolygon(polygon, cb[i], cb[(i+1)%len(cb)])
		if len(polygon) < 3 {
			return 0
		}
	}
	return polygonArea(polygon)
}

// Overlap returns the intersection-over-union of two rotated boxes.
//
// The result is always within [0, 1]. Boxes with zero area, or pairs whose
// union is zero, overlap by 0.
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - float32: The IoU score.
//
// @example
// a := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2}
// b := RBox{XCenter: 0.6, YCenter: 0.5, Width: 0.2, Height: 0.2}
// iou := Overlap(a, b) // 0.02 / 0.06 = 0.333
func Overlap(a, b RBox) float32 {
	inter := IntersectionArea(a, b)
	if inter <= 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	iou := inter / union
	if iou > 1 {
		return 1
	}
	return iou
}

// side is positive when p lies to the left of the directed edge a->b.
func side(a, b, p Point) float32 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// clipPolygon keeps the part of subject on the inner side of edge a->b.
func clipPolygon(subject []Point, a, b Point) []Point {
	out := make([]Point, 0, len(subject)+1)
	n := len(subject)
	for i := 0; i < n; i++ {
		prev, cur := subject[(i+n-1)%n], subject[i]
		sp, sc := side(a, b, prev), side(a, b, cur)
		switch {
		case sc >= 0 && sp >= 0:
			out = append(out, cur)
		case sc >= 0:
			out = append(out, crossing(prev, cur, sp, sc), cur)
		case sp >= 0:
			out = append(out, crossing(prev, cur, sp, sc))
		}
	}
	return out
}

// crossing interpolates the point where segment p->q crosses the clip edge.
// sp and sq have opposite signs, so sp-sq is never 0.
func crossing(p, q Point, sp, sq float32) Point {
	t := sp / (sp - sq)
	return Point{X: p.X + t*(q.X-p.X), Y: p.Y + t*(q.Y-p.Y)}
}

// polygonArea is the absolute shoelace area.
func polygonArea(polygon []Point) float32 {
	var sum float32
	n := len(polygon)
	for i := 0; i < n; i++ {
		p, q := polygon[i], polygon[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math32.Abs(sum) / 2
}
