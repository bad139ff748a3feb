// Package zones keeps named polygonal regions of the scene and turns per-frame track
// positions into zone visit intervals.
package zones

import (
	"encoding/json"
	"hash/fnv"

	"github.com/LdDl/mot-zones/mot"
)

// DefaultCategory is assigned to zones defined without category
const DefaultCategory = "General"

// Zone is a named polygonal region. Polygon is implicitly closed.
type Zone struct {
	Name     string      `json:"name"`
	Polygon  []mot.Point `json:"polygon"`
	Category string      `json:"category"`
	Color    mot.Color   `json:"color"`
	// Shelves is opaque nested metadata, stored and written back untouched
	Shelves json.RawMessage `json:"shelves,omitempty"`
}

// Contains reports whether point lies inside zone polygon
func (zone *Zone) Contains(p mot.Point) bool {
	return mot.PointInPolygon(p.X, p.Y, zone.Polygon)
}

// Centroid returns label anchor of the zone
func (zone *Zone) Centroid() mot.Point {
	return mot.PolygonCentroid(zone.Polygon)
}

func (zone *Zone) clone() Zone {
	out := *zone
	out.Polygon = make([]mot.Point, len(zone.Polygon))
	copy(out.Polygon, zone.Polygon)
	if zone.Shelves != nil {
		out.Shelves = append(json.RawMessage(nil), zone.Shelves...)
	}
	return out
}

var categoryColors = map[string]mot.Color{
	"Electronics":   {255, 100, 100},
	"Groceries":     {100, 255, 100},
	"Clothing":      {100, 100, 255},
	"Pharmacy":      {255, 255, 100},
	"Home & Garden": {255, 100, 255},
	"Sports":        {100, 255, 255},
	"Automotive":    {200, 150, 100},
	"Books":         {150, 200, 100},
	"Toys":          {100, 150, 200},
	"Cosmetics":     {200, 100, 150},
	"Food Court":    {150, 100, 200},
	"Checkout":      {255, 200, 100},
	"Entrance":      {100, 200, 255},
	"Exit":          {200, 255, 100},
	"Restroom":      {128, 128, 128},
}

// Categories returns known category names
func Categories() []string {
	out := make([]string, 0, len(categoryColors))
	for name := range categoryColors {
		out = append(out, name)
	}
	return out
}

// CategoryColor returns palette color for category. Unknown categories get pseudo-random
// color derived from the name, so the same category always gets the same color.
func CategoryColor(category string) mot.Color {
	if color, ok := categoryColors[category]; ok {
		return color
	}
	h := fnv.New32a()
	h.Write([]byte(category))
	sum := h.Sum32()
	return mot.Color{
		uint8(50 + sum%206),
		uint8(50 + (sum>>8)%206),
		uint8(50 + (sum>>16)%206),
	}
}
