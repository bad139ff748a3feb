package mot

import (
	"image"
	"math"
)

// Rectangle is axis-aligned box in frame pixel coordinates
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Image converts rectangle to integer pixel rectangle (truncating coordinates)
func (r Rectangle) Image() image.Rectangle {
	x, y := int(r.X), int(r.Y)
	return image.Rect(x, y, x+int(r.Width), y+int(r.Height))
}

// Center returns center of the rectangle
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Empty reports whether rectangle has non-positive width or height
func (r Rectangle) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(float64(p1.X-p2.X), 2) + math.Pow(float64(p1.Y-p2.Y), 2))
}

// Distance returns euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	return euclideanDistance(p1, p2)
}

// PointInPolygon checks whether point (x, y) lies inside polygon using ray casting.
// Polygon is implicitly closed. Polygons with less than 3 vertices contain nothing.
//
// Edge crossing is counted only when y > min(y1, y2) and y <= max(y1, y2), so points
// lying exactly on an edge may resolve differently for different edges. Horizontal
// edges never flip the state: the half-open interval above cannot hold for them and
// they are skipped explicitly before the intersection is computed.
func PointInPolygon(x, y float64, polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	inside := false
	p1 := polygon[0]
	for i := 1; i <= n; i++ {
		p2 := polygon[i%n]
		if p1.Y == p2.Y {
			p1 = p2
			continue
		}
		if y > math.Min(p1.Y, p2.Y) && y <= math.Max(p1.Y, p2.Y) && x <= math.Max(p1.X, p2.X) {
			xinters := (y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y) + p1.X
			if p1.X == p2.X || x <= xinters {
				inside = !inside
			}
		}
		p1 = p2
	}
	return inside
}

// PolygonCentroid returns arithmetic mean of polygon vertices. It is not the area-weighted
// centroid and is meant for label placement only. Returns zero point for empty polygon.
func PolygonCentroid(polygon []Point) Point {
	if len(polygon) == 0 {
		return Point{}
	}
	sumX, sumY := 0.0, 0.0
	for _, p := range polygon {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(polygon))
	return Point{X: sumX / n, Y: sumY / n}
}

// AngleBetween returns angle between two vectors in degrees, [0, 180].
// Zero-length vectors give 0.
func AngleBetween(v1, v2 Point) float64 {
	magnitude1 := math.Hypot(v1.X, v1.Y)
	magnitude2 := math.Hypot(v2.X, v2.Y)
	if magnitude1 == 0 || magnitude2 == 0 {
		return 0
	}
	cosAngle := (v1.X*v2.X + v1.Y*v2.Y) / (magnitude1 * magnitude2)
	// Clamp: rounding may push the ratio slightly outside of acos domain
	cosAngle = math.Max(-1, math.Min(1, cosAngle))
	return math.Acos(cosAngle) * 180.0 / math.Pi
}
