package zones

import (
	"testing"

	"github.com/LdDl/mot-zones/mot"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitLifecycle(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("A", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	tracker := NewVisitTracker(registry)

	inside := mot.Point{X: 5, Y: 5}
	outside := mot.Point{X: 50, Y: 50}
	for frame := 0; frame < 10; frame++ {
		assert.Empty(t, tracker.Observe(1, frame, outside))
	}
	for frame := 10; frame < 20; frame++ {
		assert.Empty(t, tracker.Observe(1, frame, inside), "frame %d", frame)
	}
	assert.Equal(t, map[string]int{"A": 10}, tracker.OpenEntries(1))

	visits := tracker.Observe(1, 20, outside)
	expected := []Visit{{
		TrackID:        1,
		Zone:           "A",
		EntryFrame:     10,
		ExitFrame:      20,
		DurationFrames: 10,
		EntryPosition:  inside,
		ExitPosition:   outside,
	}}
	if diff := cmp.Diff(expected, visits); diff != "" {
		t.Errorf("Wrong visits (-want +got):\n%s", diff)
	}
	for frame := 21; frame < 30; frame++ {
		assert.Empty(t, tracker.Observe(1, frame, outside))
	}
	assert.Empty(t, tracker.OpenEntries(1))
}

func TestVisitOverlappingZones(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("Wide", square(0, 0, 100, 100), "")
	require.NoError(t, err)
	_, err = registry.DefineZone("Inner", square(40, 40, 60, 60), "")
	require.NoError(t, err)
	tracker := NewVisitTracker(registry)

	assert.Empty(t, tracker.Observe(7, 0, mot.Point{X: 10, Y: 10}))
	assert.Empty(t, tracker.Observe(7, 5, mot.Point{X: 50, Y: 50}))
	assert.Equal(t, map[string]int{"Wide": 0, "Inner": 5}, tracker.OpenEntries(7))

	visits := tracker.Observe(7, 8, mot.Point{X: 10, Y: 10})
	require.Len(t, visits, 1)
	assert.Equal(t, "Inner", visits[0].Zone)
	assert.Equal(t, 3, visits[0].DurationFrames)

	// Leaving both zones at once gives visits ordered by zone name
	_, err = registry.DefineZone("Corner", square(0, 0, 20, 20), "")
	require.NoError(t, err)
	assert.Empty(t, tracker.Observe(7, 9, mot.Point{X: 10, Y: 10}))
	visits = tracker.Observe(7, 12, mot.Point{X: 500, Y: 500})
	require.Len(t, visits, 2)
	assert.Equal(t, "Corner", visits[0].Zone)
	assert.Equal(t, 9, visits[0].EntryFrame)
	assert.Equal(t, "Wide", visits[1].Zone)
	assert.Equal(t, 12, visits[1].DurationFrames)
}

func TestVisitTracksIndependent(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("A", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	tracker := NewVisitTracker(registry)

	tracker.Observe(1, 0, mot.Point{X: 5, Y: 5})
	tracker.Observe(2, 0, mot.Point{X: 50, Y: 50})
	visits := tracker.Observe(2, 1, mot.Point{X: 60, Y: 60})
	assert.Empty(t, visits)
	assert.Equal(t, map[string]int{"A": 0}, tracker.OpenEntries(1))
	assert.Empty(t, tracker.OpenEntries(2))
}

func TestVisitFlush(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("A", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	_, err = registry.DefineZone("B", square(0, 0, 20, 20), "")
	require.NoError(t, err)
	tracker := NewVisitTracker(registry)

	p := mot.Point{X: 5, Y: 5}
	tracker.Observe(3, 4, p)
	tracker.Observe(3, 5, p)

	// No implicit closure: open entries wait for explicit flush
	assert.Len(t, tracker.OpenEntries(3), 2)

	last := mot.Point{X: 6, Y: 6}
	visits := tracker.Flush(3, 40, last)
	require.Len(t, visits, 2)
	assert.Equal(t, "A", visits[0].Zone)
	assert.Equal(t, "B", visits[1].Zone)
	for _, visit := range visits {
		assert.Equal(t, 4, visit.EntryFrame)
		assert.Equal(t, 40, visit.ExitFrame)
		assert.Equal(t, 36, visit.DurationFrames)
		assert.Equal(t, last, visit.ExitPosition)
	}
	assert.Empty(t, tracker.OpenEntries(3))
	assert.Empty(t, tracker.Flush(3, 41, last))
	assert.Empty(t, tracker.Flush(99, 41, last))
}

func TestVisitForget(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DefineZone("A", square(0, 0, 10, 10), "")
	require.NoError(t, err)
	tracker := NewVisitTracker(registry)
	tracker.Observe(1, 0, mot.Point{X: 5, Y: 5})
	tracker.Forget(1)
	assert.Empty(t, tracker.OpenEntries(1))
	// After forgetting, the next observation inside opens a new entry
	assert.Empty(t, tracker.Observe(1, 10, mot.Point{X: 5, Y: 5}))
	assert.Equal(t, map[string]int{"A": 10}, tracker.OpenEntries(1))
}
