package zones

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LdDl/mot-zones/logger"
	"github.com/LdDl/mot-zones/mot"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrLayoutInvalid is returned when layout document is structurally broken as a whole
var ErrLayoutInvalid = errors.New("invalid zone layout document")

// SkippedZone describes layout entry which was not loaded
type SkippedZone struct {
	Name   string
	Reason string
}

// LoadReport lists outcome of LoadLayout
type LoadReport struct {
	Loaded  []string
	Skipped []SkippedZone
}

// Partial reports whether some entries were skipped
func (report *LoadReport) Partial() bool {
	return len(report.Skipped) > 0
}

func (report *LoadReport) skip(name, format string, args ...interface{}) {
	reason := fmt.Sprintf(format, args...)
	logger.Warn("zones", "layout entry %q skipped: %s", name, reason)
	report.Skipped = append(report.Skipped, SkippedZone{Name: name, Reason: reason})
}

type layoutZone struct {
	Polygon  [][2]float64    `json:"polygon"`
	Category string          `json:"category"`
	Color    [3]uint8        `json:"color"`
	Shelves  json.RawMessage `json:"shelves,omitempty"`
}

type layoutDocument struct {
	Zones map[string]layoutZone `json:"zones"`
}

// SaveLayout writes all zone definitions as indented JSON document
func (registry *Registry) SaveLayout(w io.Writer) error {
	doc := layoutDocument{
		Zones: make(map[string]layoutZone),
	}
	for _, zone := range registry.Zones() {
		doc.Zones[zone.Name] = layoutZone{
			Polygon:  toPairs(zone.Polygon),
			Category: zone.Category,
			Color:    zone.Color,
			Shelves:  zone.Shelves,
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrap(err, "can't encode zone layout")
	}
	return nil
}

// SaveLayoutFile writes layout to file
func (registry *Registry) SaveLayoutFile(path string) error {
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrap(err, "can't create layout file")
	}
	if err := registry.SaveLayout(file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "can't close layout file")
}

// LoadLayout replaces registry contents with zones from JSON document. The document holds
// "zones" object (legacy "sections" is accepted too) of name -> {polygon, category, color, shelves}.
// Malformed entries are skipped and listed in the report; a document which is not valid JSON
// or has no zones object fails as a whole and leaves registry untouched.
func (registry *Registry) LoadLayout(r io.Reader) (*LoadReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "can't read zone layout")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(ErrLayoutInvalid, "not a valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.Wrap(ErrLayoutInvalid, "root is not an object")
	}
	entries := root.Get("zones")
	if !entries.Exists() {
		entries = root.Get("sections")
	}
	if !entries.Exists() || !entries.IsObject() {
		return nil, errors.Wrap(ErrLayoutInvalid, "no zones object")
	}

	report := &LoadReport{}
	parsed := make([]Zone, 0)
	entries.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		zone, ok := parseLayoutZone(name, value, report)
		if ok {
			parsed = append(parsed, zone)
		}
		return true
	})

	registry.Clear()
	for _, zone := range parsed {
		if _, err := registry.put(zone); err != nil {
			report.skip(zone.Name, "%v", err)
			continue
		}
		report.Loaded = append(report.Loaded, zone.Name)
	}
	return report, nil
}

// LoadLayoutFile reads layout from file
func (registry *Registry) LoadLayoutFile(path string) (*LoadReport, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "can't open layout file")
	}
	defer file.Close()
	return registry.LoadLayout(file)
}

func parseLayoutZone(name string, value gjson.Result, report *LoadReport) (Zone, bool) {
	if !value.IsObject() {
		report.skip(name, "entry is not an object")
		return Zone{}, false
	}
	polygonNode := value.Get("polygon")
	if !polygonNode.IsArray() {
		report.skip(name, "polygon is missing or is not an array")
		return Zone{}, false
	}
	vertices := polygonNode.Array()
	if len(vertices) < 3 {
		report.skip(name, "polygon has %d vertices, at least 3 required", len(vertices))
		return Zone{}, false
	}
	polygon := make([]mot.Point, 0, len(vertices))
	for i, vertex := range vertices {
		coords := vertex.Array()
		if !vertex.IsArray() || len(coords) < 2 || coords[0].Type != gjson.Number || coords[1].Type != gjson.Number {
			report.skip(name, "vertex %d is not a coordinate pair", i)
			return Zone{}, false
		}
		polygon = append(polygon, mot.Point{X: coords[0].Float(), Y: coords[1].Float()})
	}

	category := DefaultCategory
	if node := value.Get("category"); node.Type == gjson.String && node.String() != "" {
		category = node.String()
	}

	color := CategoryColor(category)
	if node := value.Get("color"); node.Exists() {
		if parsed, ok := parseColor(node); ok {
			color = parsed
		} else {
			logger.Warn("zones", "zone %q has malformed color %s, palette color is used", name, node.Raw)
		}
	}

	var shelves json.RawMessage
	shelvesNode := value.Get("shelves")
	if !shelvesNode.Exists() {
		shelvesNode = value.Get("shelf_info")
	}
	if shelvesNode.Exists() && shelvesNode.Type != gjson.Null {
		shelves = json.RawMessage(shelvesNode.Raw)
	}

	return Zone{
		Name:     name,
		Polygon:  polygon,
		Category: category,
		Color:    color,
		Shelves:  shelves,
	}, true
}

func parseColor(node gjson.Result) (mot.Color, bool) {
	channels := node.Array()
	if !node.IsArray() || len(channels) != 3 {
		return mot.Color{}, false
	}
	var color mot.Color
	for i, channel := range channels {
		if channel.Type != gjson.Number {
			return mot.Color{}, false
		}
		v := channel.Int()
		if v < 0 || v > 255 {
			return mot.Color{}, false
		}
		color[i] = uint8(v)
	}
	return color, true
}
