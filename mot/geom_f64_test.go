package mot

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := Point{X: 341, Y: 264}
	p2 := Point{X: 421, Y: 427}
	correnctAnswer := 181.57367
	answer := euclideanDistance(p1, p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestPointInPolygonUnitSquare(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	cases := []struct {
		x, y   float64
		inside bool
	}{
		{5, 5, true},
		{15, 5, false},
		{-1, -1, false},
		{9.99, 0.01, true},
		{5, 10.5, false},
	}
	for _, c := range cases {
		if answer := PointInPolygon(c.x, c.y, square); answer != c.inside {
			t.Errorf("Wrong answer for (%v, %v): %v, correct answer: %v", c.x, c.y, answer, c.inside)
		}
	}
}

func TestPointInPolygonDegenerate(t *testing.T) {
	if PointInPolygon(1, 1, []Point{{0, 0}, {5, 5}}) {
		t.Error("Polygon with 2 vertices should contain nothing")
	}
	if PointInPolygon(0, 0, nil) {
		t.Error("Empty polygon should contain nothing")
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// U-shaped polygon: notch between x=4..6 from y=0 to y=6
	shape := []Point{{0, 0}, {4, 0}, {4, 6}, {6, 6}, {6, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !PointInPolygon(2, 2, shape) {
		t.Error("Point (2, 2) should be inside left leg")
	}
	if PointInPolygon(5, 2, shape) {
		t.Error("Point (5, 2) should be inside the notch, i.e. outside of polygon")
	}
	if !PointInPolygon(5, 8, shape) {
		t.Error("Point (5, 8) should be inside upper part")
	}
}

func TestPolygonCentroid(t *testing.T) {
	centroid := PolygonCentroid([]Point{{50, 50}, {200, 50}, {200, 150}, {50, 150}})
	if math.Abs(centroid.X-125) > eps || math.Abs(centroid.Y-100) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", centroid, Point{125, 100})
	}
	if (PolygonCentroid(nil) != Point{}) {
		t.Error("Centroid of empty polygon should be zero point")
	}
}

func TestAngleBetween(t *testing.T) {
	cases := []struct {
		v1, v2 Point
		angle  float64
	}{
		{Point{1, 0}, Point{0, 1}, 90},
		{Point{1, 0}, Point{1, 0}, 0},
		{Point{1, 0}, Point{-1, 0}, 180},
		{Point{1, 1}, Point{1, 0}, 45},
		{Point{0, 0}, Point{1, 0}, 0},
		// nearly parallel vectors could overshoot acos domain without clamping
		{Point{1e-8, 1}, Point{1e-8, 1}, 0},
	}
	for _, c := range cases {
		answer := AngleBetween(c.v1, c.v2)
		if math.IsNaN(answer) || math.Abs(answer-c.angle) > 1e-4 {
			t.Errorf("Wrong answer for %v, %v: %v, correct answer: %v", c.v1, c.v2, answer, c.angle)
		}
	}
}

func TestRectangleCenter(t *testing.T) {
	rect := NewRect(10, 20, 30, 40)
	expected := Point{X: 25, Y: 40}
	if rect.Center() != expected {
		t.Errorf("Expected center %v, got %v", expected, rect.Center())
	}
	if rect.Empty() {
		t.Error("Rectangle 30x40 should not be empty")
	}
	if !NewRect(0, 0, 0, 5).Empty() {
		t.Error("Rectangle with zero width should be empty")
	}
}
