package zones

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/LdDl/mot-zones/logger"
	"github.com/LdDl/mot-zones/mot"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// ErrZoneDefinitionRejected is returned for zones with empty name or less than 3 vertices
	ErrZoneDefinitionRejected = errors.New("zone definition rejected")
	// ErrZoneNotFound is returned for unknown zone name
	ErrZoneNotFound = errors.New("zone not found")
)

// Registry owns zone definitions. Safe for concurrent use: membership queries take read lock.
type Registry struct {
	mu    sync.RWMutex
	zones map[string]*Zone
}

// NewRegistry creates empty registry
func NewRegistry() *Registry {
	return &Registry{
		zones: make(map[string]*Zone),
	}
}

// DefineZone adds zone or overwrites existing zone with the same name (replaced is true then).
// Color is taken from category palette; empty category becomes DefaultCategory.
func (registry *Registry) DefineZone(name string, polygon []mot.Point, category string) (bool, error) {
	if category == "" {
		category = DefaultCategory
	}
	return registry.put(Zone{
		Name:     name,
		Polygon:  polygon,
		Category: category,
		Color:    CategoryColor(category),
	})
}

// Define adds zone keeping its color and shelves metadata as given. Same rules as DefineZone apply.
func (registry *Registry) Define(zone Zone) (bool, error) {
	if zone.Category == "" {
		zone.Category = DefaultCategory
	}
	return registry.put(zone)
}

func (registry *Registry) put(zone Zone) (bool, error) {
	zone.Name = strings.TrimSpace(zone.Name)
	if zone.Name == "" {
		return false, errors.Wrap(ErrZoneDefinitionRejected, "empty zone name")
	}
	if len(zone.Polygon) < 3 {
		return false, errors.Wrapf(ErrZoneDefinitionRejected, "zone %q has %d vertices, at least 3 required", zone.Name, len(zone.Polygon))
	}
	if len(zone.Shelves) > 0 {
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, zone.Shelves); err != nil {
			return false, errors.Wrapf(ErrZoneDefinitionRejected, "zone %q shelves metadata is not valid JSON", zone.Name)
		}
		zone.Shelves = compacted.Bytes()
	} else {
		zone.Shelves = nil
	}
	stored := zone.clone()

	registry.mu.Lock()
	defer registry.mu.Unlock()
	_, replaced := registry.zones[zone.Name]
	if replaced {
		logger.Warn("zones", "zone %q is redefined, previous definition is overwritten", zone.Name)
	}
	registry.zones[zone.Name] = &stored
	return replaced, nil
}

// ZonesContaining returns names of all zones containing point (x, y), sorted.
// Overlapping zones are all reported.
func (registry *Registry) ZonesContaining(x, y float64) []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0)
	for name, zone := range registry.zones {
		if mot.PointInPolygon(x, y, zone.Polygon) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Zone returns copy of zone definition
func (registry *Registry) Zone(name string) (Zone, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	zone, ok := registry.zones[name]
	if !ok {
		return Zone{}, false
	}
	return zone.clone(), true
}

// Names returns sorted zone names
func (registry *Registry) Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.zones))
	for name := range registry.zones {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Zones returns copies of all zones sorted by name
func (registry *Registry) Zones() []Zone {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]Zone, 0, len(registry.zones))
	for _, zone := range registry.zones {
		out = append(out, zone.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns number of zones
func (registry *Registry) Len() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.zones)
}

// Remove deletes zone. Returns false if there was no such zone.
func (registry *Registry) Remove(name string) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	_, ok := registry.zones[name]
	delete(registry.zones, name)
	return ok
}

// Clear deletes all zones
func (registry *Registry) Clear() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.zones = make(map[string]*Zone)
}

// Shelf identifiers are used as single path components
var shelfPath = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

type shelf struct {
	Polygon  [][2]float64           `json:"polygon"`
	Products map[string]interface{} `json:"products"`
}

// AddShelf stores shelf polygon and product info in zone metadata
func (registry *Registry) AddShelf(zoneName, shelfID string, polygon []mot.Point, products map[string]interface{}) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	zone, ok := registry.zones[zoneName]
	if !ok {
		return errors.Wrapf(ErrZoneNotFound, "zone %q", zoneName)
	}
	base := []byte("{}")
	if len(zone.Shelves) > 0 {
		if !gjson.ParseBytes(zone.Shelves).IsObject() {
			return errors.Errorf("zone %q shelves metadata is not an object", zoneName)
		}
		base = append([]byte(nil), zone.Shelves...)
	}
	encoded, err := json.Marshal(shelf{Polygon: toPairs(polygon), Products: products})
	if err != nil {
		return errors.Wrapf(err, "can't encode shelf %q", shelfID)
	}
	raw, err := sjson.SetRawBytes(base, shelfPath.Replace(shelfID), encoded)
	if err != nil {
		return errors.Wrapf(err, "can't store shelf %q in zone %q", shelfID, zoneName)
	}
	zone.Shelves = raw
	return nil
}

// LoadDefaultLayout defines typical store layout for frame of given size.
// Edges are integer pixel columns and rows, fractions of the frame size rounded down.
func (registry *Registry) LoadDefaultLayout(width, height int) {
	w, h := width, height
	rect := func(x0, y0, x1, y1 int) []mot.Point {
		left, top, right, bottom := float64(x0), float64(y0), float64(x1), float64(y1)
		return []mot.Point{{X: left, Y: top}, {X: right, Y: top}, {X: right, Y: bottom}, {X: left, Y: bottom}}
	}
	layout := []struct {
		name    string
		polygon []mot.Point
	}{
		{"Entrance", rect(0, 0, w/4, h/8)},
		{"Electronics", rect(w/4, 0, w/2, h/3)},
		{"Groceries", rect(0, h/3, w/2, h*2/3)},
		{"Clothing", rect(w/2, 0, w*3/4, h/2)},
		{"Pharmacy", rect(w*3/4, 0, w, h/4)},
		{"Home & Garden", rect(w/2, h/2, w, h*3/4)},
		{"Checkout", rect(0, h*2/3, w/2, h)},
		{"Exit", rect(w/2, h*3/4, w, h)},
	}
	for _, zone := range layout {
		// Category equals name for default layout; polygons are always valid here
		registry.DefineZone(zone.name, zone.polygon, zone.name)
	}
}

func toPairs(polygon []mot.Point) [][2]float64 {
	out := make([][2]float64, len(polygon))
	for i, p := range polygon {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}
