package images

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

// TestOverlap_Correctness validates the rotated IoU against closed-form cases.
func TestOverlap_Correctness(t *testing.T) {
	unit := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2}
	tests := []struct {
		name     string
		a        RBox
		b        RBox
		expected float32
	}{
		{
			name:     "Identical boxes",
			a:        unit,
			b:        unit,
			expected: 1.0,
		},
		{
			name:     "No overlap",
			a:        unit,
			b:        RBox{XCenter: 0.9, YCenter: 0.9, Width: 0.1, Height: 0.1},
			expected: 0.0,
		},
		{
			name:     "Touching edges",
			a:        unit,
			b:        RBox{XCenter: 0.7, YCenter: 0.5, Width: 0.2, Height: 0.2},
			expected: 0.0,
		},
		{
			name:     "Half width shift",
			a:        unit,
			b:        RBox{XCenter: 0.6, YCenter: 0.5, Width: 0.2, Height: 0.2},
			expected: 1.0 / 3.0, // intersection=0.02, union=0.06
		},
		{
			name:     "One inside other",
			a:        RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.4, Height: 0.4},
			b:        unit,
			expected: 0.25,
		},
		{
			name:     "Square rotated 45 degrees",
			a:        RBox{XCenter: 0, YCenter: 0, Width: 1, Height: 1},
			b:        RBox{XCenter: 0, YCenter: 0, Width: 1, Height: 1, Angle: math32.Pi / 4},
			expected: 0.707107, // octagon 2(sqrt2-1) over 2-octagon
		},
		{
			name:     "Rotated by pi is the same rectangle",
			a:        RBox{XCenter: 0.3, YCenter: 0.4, Width: 0.2, Height: 0.1, Angle: 0.3},
			b:        RBox{XCenter: 0.3, YCenter: 0.4, Width: 0.2, Height: 0.1, Angle: 0.3 + math32.Pi},
			expected: 1.0,
		},
		{
			name:     "Rectangle against its quarter turn",
			a:        RBox{XCenter: 0, YCenter: 0, Width: 2, Height: 1},
			b:        RBox{XCenter: 0, YCenter: 0, Width: 2, Height: 1, Angle: math32.Pi / 2},
			expected: 1.0 / 3.0, // 1x1 core, union 2+2-1
		},
		{
			name:     "Rotated and contained",
			a:        RBox{XCenter: 0, YCenter: 0, Width: 4, Height: 4},
			b:        RBox{XCenter: 0, YCenter: 0, Width: 1, Height: 1, Angle: 0.7},
			expected: 1.0 / 16.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Overlap(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 1e-4)

			// IoU(A, B) should equal IoU(B, A).
			assert.InDelta(t, result, Overlap(tt.b, tt.a), 1e-4, "overlap not symmetric")
		})
	}
}

// TestOverlap_EdgeCases checks degenerate inputs never divide by zero.
func TestOverlap_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		a    RBox
		b    RBox
	}{
		{"Zero width", RBox{Width: 0, Height: 1}, RBox{Width: 1, Height: 1}},
		{"Zero height", RBox{Width: 1, Height: 1}, RBox{Width: 1, Height: 0}},
		{"Both empty", RBox{}, RBox{}},
		{"Negative size", RBox{Width: -1, Height: 1}, RBox{Width: 1, Height: 1}},
		{"Far apart rotated", RBox{XCenter: -5, Width: 1, Height: 1, Angle: 1}, RBox{XCenter: 5, Width: 1, Height: 1, Angle: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, float32(0), Overlap(tt.a, tt.b))
			assert.Equal(t, float32(0), Overlap(tt.b, tt.a))
		})
	}
}

// TestOverlap_Range sweeps relative rotations and offsets.
func TestOverlap_Range(t *testing.T) {
	a := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.1, Angle: 0.2}
	for i := 0; i < 36; i++ {
		for j := 0; j < 5; j++ {
			b := RBox{
				XCenter: 0.5 + float32(j)*0.03,
				YCenter: 0.5,
				Width:   0.25,
				Height:  0.12,
				Angle:   float32(i) * math32.Pi / 18,
			}
			iou := Overlap(a, b)
			assert.GreaterOrEqual(t, iou, float32(0))
			assert.LessOrEqual(t, iou, float32(1))
			assert.InDelta(t, iou, Overlap(b, a), 1e-4)
		}
	}
}

func TestRBox_Corners(t *testing.T) {
	box := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.1}
	c := box.Corners()
	assert.InDelta(t, 0.4, c[0].X, 1e-6)
	assert.InDelta(t, 0.45, c[0].Y, 1e-6)
	assert.InDelta(t, 0.6, c[2].X, 1e-6)
	assert.InDelta(t, 0.55, c[2].Y, 1e-6)

	// A quarter turn swaps the extents.
	box.Angle = math32.Pi / 2
	c = box.Corners()
	assert.InDelta(t, 0.55, c[0].X, 1e-6)
	assert.InDelta(t, 0.4, c[0].Y, 1e-6)
	assert.InDelta(t, box.Area(), polygonArea(c[:]), 1e-6)
}

func TestIntersectionArea_Contained(t *testing.T) {
	outer := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.8, Height: 0.8, Angle: 0.4}
	inner := RBox{XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.2, Angle: 1.1}
	assert.InDelta(t, inner.Area(), IntersectionArea(outer, inner), 1e-6)
	assert.InDelta(t, inner.Area(), IntersectionArea(inner, outer), 1e-6)
}
