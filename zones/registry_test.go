package zones

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LdDl/mot-zones/mot"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64) []mot.Point {
	return []mot.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestDefineZoneRejected(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("Line", []mot.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, "")
	assert.True(t, errors.Is(err, ErrZoneDefinitionRejected), "got %v", err)
	_, err = registry.DefineZone("   ", square(0, 0, 10, 10), "")
	assert.True(t, errors.Is(err, ErrZoneDefinitionRejected), "got %v", err)
	assert.Equal(t, 0, registry.Len())
}

func TestDefineZoneOverwrite(t *testing.T) {
	registry := NewRegistry()
	replaced, err := registry.DefineZone("A", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = registry.DefineZone("A", square(100, 100, 110, 110), "Books")
	require.NoError(t, err)
	assert.True(t, replaced)

	zone, ok := registry.Zone("A")
	require.True(t, ok)
	assert.Equal(t, "Books", zone.Category)
	assert.Equal(t, CategoryColor("Books"), zone.Color)
	assert.Empty(t, registry.ZonesContaining(5, 5))
	assert.Equal(t, []string{"A"}, registry.ZonesContaining(105, 105))
}

func TestDefineZoneDefaults(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("Aisle 7", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	zone, _ := registry.Zone("Aisle 7")
	assert.Equal(t, DefaultCategory, zone.Category)
	assert.Equal(t, CategoryColor(DefaultCategory), zone.Color)
	assert.Equal(t, mot.Point{X: 5, Y: 5}, zone.Centroid())
}

func TestCategoryColor(t *testing.T) {
	assert.Equal(t, mot.Color{255, 100, 100}, CategoryColor("Electronics"))
	assert.Len(t, Categories(), 15)
	// Unknown categories are stable and not too dark
	first := CategoryColor("Garden Furniture")
	assert.Equal(t, first, CategoryColor("Garden Furniture"))
	for _, channel := range first {
		assert.GreaterOrEqual(t, channel, uint8(50))
	}
}

func TestZonesContainingOverlap(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("Wide", square(0, 0, 100, 100), "")
	require.NoError(t, err)
	_, err = registry.DefineZone("Inner", square(40, 40, 60, 60), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Inner", "Wide"}, registry.ZonesContaining(50, 50))
	assert.Equal(t, []string{"Wide"}, registry.ZonesContaining(10, 10))
	assert.Empty(t, registry.ZonesContaining(150, 150))

	assert.True(t, registry.Remove("Wide"))
	assert.False(t, registry.Remove("Wide"))
	assert.Equal(t, []string{"Inner"}, registry.Names())
}

func TestLayoutRoundTrip(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("Electronics", []mot.Point{{X: 50, Y: 50}, {X: 200, Y: 50}, {X: 200, Y: 150}, {X: 50, Y: 150}}, "Electronics")
	require.NoError(t, err)
	_, err = registry.DefineZone("Odd corner", []mot.Point{{X: 0.5, Y: 1.25}, {X: 30, Y: 2}, {X: 12, Y: 40}}, "Garden Furniture")
	require.NoError(t, err)
	err = registry.AddShelf("Electronics", "A1", square(60, 60, 80, 70), map[string]interface{}{"brand": "Acme", "count": 12.0})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, registry.SaveLayout(&buf))

	restored := NewRegistry()
	_, err = restored.DefineZone("Stale", square(0, 0, 1, 1), "")
	require.NoError(t, err)
	report, err := restored.LoadLayout(&buf)
	require.NoError(t, err)
	assert.False(t, report.Partial())
	assert.ElementsMatch(t, []string{"Electronics", "Odd corner"}, report.Loaded)

	if diff := cmp.Diff(registry.Zones(), restored.Zones()); diff != "" {
		t.Errorf("Layout round trip mismatch (-want +got):\n%s", diff)
	}

	zone, _ := restored.Zone("Electronics")
	var shelves map[string]struct {
		Polygon  [][2]float64          `json:"polygon"`
		Products map[string]interface{} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(zone.Shelves, &shelves))
	assert.Equal(t, "Acme", shelves["A1"].Products["brand"])
	assert.Len(t, shelves["A1"].Polygon, 4)
}

func TestLayoutFileRoundTrip(t *testing.T) {
	registry := NewRegistry()
	registry.LoadDefaultLayout(640, 480)
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, registry.SaveLayoutFile(path))

	restored := NewRegistry()
	report, err := restored.LoadLayoutFile(path)
	require.NoError(t, err)
	assert.Len(t, report.Loaded, 8)
	assert.Equal(t, registry.Names(), restored.Names())
	assert.Equal(t, []string{"Entrance"}, restored.ZonesContaining(10, 10))
}

func TestDefaultLayoutPixelEdges(t *testing.T) {
	registry := NewRegistry()
	// Neither side divides evenly: edges snap down to whole pixels
	registry.LoadDefaultLayout(101, 99)
	require.Equal(t, 8, registry.Len())
	want := map[string][]mot.Point{
		"Entrance":      square(0, 0, 25, 12),
		"Electronics":   square(25, 0, 50, 33),
		"Groceries":     square(0, 33, 50, 66),
		"Clothing":      square(50, 0, 75, 49),
		"Pharmacy":      square(75, 0, 101, 24),
		"Home & Garden": square(50, 49, 101, 74),
		"Checkout":      square(0, 66, 50, 99),
		"Exit":          square(50, 74, 101, 99),
	}
	for name, polygon := range want {
		zone, ok := registry.Zone(name)
		require.True(t, ok, name)
		assert.Equal(t, polygon, zone.Polygon, name)
		assert.Equal(t, name, zone.Category)
	}
}

func TestLoadLayoutPartial(t *testing.T) {
	doc := `{
		"zones": {
			"Good": {"polygon": [[0,0],[10,0],[10,10],[0,10]], "category": "Books", "color": [1,2,3]},
			"TooShort": {"polygon": [[0,0],[10,0]]},
			"BadVertex": {"polygon": [[0,0],["x",0],[10,10]]},
			"NoPolygon": {"category": "Toys"},
			"NotObject": 42,
			"Defaults": {"polygon": [[20,20],[30,20],[30,30]], "color": [300, 0, 0]}
		}
	}`
	registry := NewRegistry()
	report, err := registry.LoadLayout(strings.NewReader(doc))
	require.NoError(t, err)
	assert.True(t, report.Partial())
	assert.Equal(t, []string{"Good", "Defaults"}, report.Loaded)

	skipped := make([]string, 0, len(report.Skipped))
	for _, s := range report.Skipped {
		skipped = append(skipped, s.Name)
		assert.NotEmpty(t, s.Reason)
	}
	assert.Equal(t, []string{"TooShort", "BadVertex", "NoPolygon", "NotObject"}, skipped)

	good, _ := registry.Zone("Good")
	assert.Equal(t, mot.Color{1, 2, 3}, good.Color)
	assert.Equal(t, "Books", good.Category)

	defaults, _ := registry.Zone("Defaults")
	assert.Equal(t, DefaultCategory, defaults.Category)
	assert.Equal(t, CategoryColor(DefaultCategory), defaults.Color)
}

func TestLoadLayoutLegacySections(t *testing.T) {
	doc := `{"sections": {"Dairy": {"polygon": [[0,0],[10,0],[10,10]], "category": "Groceries", "shelf_info": {"s1": {"products": {}}}}}}`
	registry := NewRegistry()
	report, err := registry.LoadLayout(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dairy"}, report.Loaded)
	zone, _ := registry.Zone("Dairy")
	assert.JSONEq(t, `{"s1": {"products": {}}}`, string(zone.Shelves))
}

func TestLoadLayoutInvalid(t *testing.T) {
	docs := []string{
		``,
		`not json`,
		`[1, 2, 3]`,
		`{"something": {}}`,
		`{"zones": [1, 2]}`,
	}
	for _, doc := range docs {
		registry := NewRegistry()
		registry.LoadDefaultLayout(100, 100)
		_, err := registry.LoadLayout(strings.NewReader(doc))
		assert.True(t, errors.Is(err, ErrLayoutInvalid), "document %q: got %v", doc, err)
		// Registry is untouched on hard failure
		assert.Equal(t, 8, registry.Len())
	}
}

func TestAddShelfUnknownZone(t *testing.T) {
	registry := NewRegistry()
	err := registry.AddShelf("Nowhere", "A1", square(0, 0, 1, 1), nil)
	assert.True(t, errors.Is(err, ErrZoneNotFound), "got %v", err)
}

func TestAddShelfKeepsExisting(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("Pharmacy", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	require.NoError(t, registry.AddShelf("Pharmacy", "P1", square(0, 0, 2, 2), map[string]interface{}{"count": 3.0}))
	require.NoError(t, registry.AddShelf("Pharmacy", "P.2", square(2, 2, 4, 4), nil))

	zone, _ := registry.Zone("Pharmacy")
	shelves := map[string]shelf{}
	require.NoError(t, json.Unmarshal(zone.Shelves, &shelves))
	require.Len(t, shelves, 2)
	assert.Equal(t, 3.0, shelves["P1"].Products["count"])
	assert.Equal(t, [2]float64{2, 2}, shelves["P.2"].Polygon[0])
}
