package mot

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestTrackManagerAddAndUpdate(t *testing.T) {
	manager := NewTrackManagerDefault()
	start := Point{X: 10, Y: 20}
	id, err := manager.AddTrack(makeFrame(0, start), patchBox(start), StrategyTemplate)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("First identifier should be 1, got %d", id)
	}

	next := Point{X: 14, Y: 22}
	results, err := manager.UpdateAll(context.Background(), makeFrame(1, next))
	if err != nil {
		t.Fatal(err)
	}
	result, ok := results[id]
	if !ok {
		t.Fatalf("No result for track %d", id)
	}
	if !result.Success || result.State != TrackActive {
		t.Errorf("Update should succeed: %+v", result)
	}
	expectedCenter := Point{X: 24, Y: 32}
	if result.Center != expectedCenter {
		t.Errorf("Wrong center: %v, expected: %v", result.Center, expectedCenter)
	}
}

func TestTrackManagerInitializationFailed(t *testing.T) {
	manager := NewTrackManagerDefault()
	frame := makeFrame(0, Point{X: 10, Y: 10})
	_, err := manager.AddTrack(frame, NewRect(10, 10, 0, 0), StrategyTemplate)
	if !errors.Is(err, ErrInitializationFailed) {
		t.Errorf("Expected ErrInitializationFailed, got %v", err)
	}
	_, err = manager.AddTrack(frame, NewRect(1000, 1000, 10, 10), StrategyTemplate)
	if !errors.Is(err, ErrInitializationFailed) {
		t.Errorf("Expected ErrInitializationFailed for box outside of frame, got %v", err)
	}
	// Failed attempts do not consume identifiers
	id, err := manager.AddTrack(frame, patchBox(Point{X: 10, Y: 10}), StrategyTemplate)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("Expected identifier 1, got %d", id)
	}
}

func TestTrackManagerLostLifecycle(t *testing.T) {
	manager := NewTrackManager(30, 2, 30, DefaultTrackerOptions())
	start := Point{X: 40, Y: 40}
	id, err := manager.AddTrack(makeFrame(0, start), patchBox(start), StrategyTemplate)
	if err != nil {
		t.Fatal(err)
	}

	frameIdx := 1
	prevLost := 0
	// Lost for several frames: counter grows by one each frame
	for ; frameIdx <= 10; frameIdx++ {
		results, err := manager.UpdateAll(context.Background(), makeFrame(frameIdx))
		if err != nil {
			t.Fatal(err)
		}
		result := results[id]
		if result.Success || result.State != TrackLost {
			t.Fatalf("Frame %d: expected lost track, got %+v", frameIdx, result)
		}
		if result.LostFrames != prevLost+1 {
			t.Fatalf("Frame %d: lost frames should be %d, got %d", frameIdx, prevLost+1, result.LostFrames)
		}
		if result.Box != patchBox(start) {
			t.Errorf("Lost track should report last known box, got %v", result.Box)
		}
		prevLost = result.LostFrames
	}

	// Implicit re-acquisition resets counter to zero
	results, err := manager.UpdateAll(context.Background(), makeFrame(frameIdx, start))
	if err != nil {
		t.Fatal(err)
	}
	if !results[id].Success || results[id].LostFrames != 0 || results[id].State != TrackActive {
		t.Fatalf("Track should be re-acquired: %+v", results[id])
	}
	frameIdx++

	// 30 misses keep it lost, the 31st terminates
	for i := 1; i <= 31; i++ {
		results, err = manager.UpdateAll(context.Background(), makeFrame(frameIdx))
		if err != nil {
			t.Fatal(err)
		}
		frameIdx++
		expected := TrackLost
		if i == 31 {
			expected = TrackTerminated
		}
		if results[id].State != expected {
			t.Fatalf("Miss %d: expected state %s, got %s", i, expected, results[id].State)
		}
	}

	// Terminated track is pruned from updates and never comes back
	results, err = manager.UpdateAll(context.Background(), makeFrame(frameIdx, start))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := results[id]; ok {
		t.Error("Terminated track should not be updated")
	}
	err = manager.Reinitialize(id, makeFrame(frameIdx, start), patchBox(start))
	if !errors.Is(err, ErrTrackTerminated) {
		t.Errorf("Expected ErrTrackTerminated, got %v", err)
	}
	info, ok := manager.Track(id)
	if !ok || info.State != TrackTerminated {
		t.Errorf("Terminated track should stay addressable and terminated: %+v", info)
	}
	if len(manager.ActiveIDs()) != 0 {
		t.Errorf("No active tracks expected, got %v", manager.ActiveIDs())
	}
	if err := manager.Discard(id); err != nil {
		t.Error(err)
	}
	if _, ok := manager.Track(id); ok {
		t.Error("Discarded track should not be addressable")
	}
}

func TestTrackManagerRemoveAndReinitialize(t *testing.T) {
	manager := NewTrackManagerDefault()
	a := Point{X: 5, Y: 5}
	b := Point{X: 70, Y: 60}
	frame := makeFrame(0, a, b)
	idA, err := manager.AddTrack(frame, patchBox(a), StrategyTemplate)
	if err != nil {
		t.Fatal(err)
	}
	idB, err := manager.AddTrack(frame, patchBox(b), StrategyTemplate)
	if err != nil {
		t.Fatal(err)
	}

	// Lose B only, A unaffected
	results, err := manager.UpdateAll(context.Background(), makeFrame(1, a))
	if err != nil {
		t.Fatal(err)
	}
	if !results[idA].Success {
		t.Error("Track A should not be affected by track B loss")
	}
	if results[idB].State != TrackLost {
		t.Errorf("Track B should be lost, got %s", results[idB].State)
	}

	// Manual re-selection of B at new place
	moved := Point{X: 80, Y: 20}
	if err := manager.Reinitialize(idB, makeFrame(2, a, moved), patchBox(moved)); err != nil {
		t.Fatal(err)
	}
	info, _ := manager.Track(idB)
	if info.State != TrackActive || info.LostFrames != 0 || info.Box != patchBox(moved) {
		t.Errorf("Reinitialized track is wrong: %+v", info)
	}

	if err := manager.RemoveTrack(idA); err != nil {
		t.Fatal(err)
	}
	info, _ = manager.Track(idA)
	if info.State != TrackTerminated {
		t.Errorf("Removed track should be terminated, got %s", info.State)
	}
	if err := manager.RemoveTrack(42); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
	if err := manager.Reinitialize(42, frame, patchBox(a)); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}

	results, err = manager.UpdateAll(context.Background(), makeFrame(3, a, moved))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[idB].Success {
		t.Errorf("Only track B should be updated and found: %+v", results)
	}
}

func TestTrackManagerManyTracksConcurrently(t *testing.T) {
	manager := NewTrackManager(30, 4, 25, DefaultTrackerOptions())
	starts := []Point{{0, 0}, {25, 0}, {50, 0}, {75, 0}, {0, 50}, {25, 50}, {50, 50}, {75, 50}}
	frame := makeFrame(0, starts...)
	ids := make([]int, len(starts))
	for i, p := range starts {
		id, err := manager.AddTrack(frame, patchBox(p), StrategyTemplate)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("Identifiers should increase: %v", ids)
		}
	}
	results, err := manager.UpdateAll(context.Background(), makeFrame(1, starts...))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(starts) {
		t.Fatalf("incorrect number of results: %d, expected: %d", len(results), len(starts))
	}
	for _, id := range ids {
		if !results[id].Success {
			t.Errorf("Track %d should be found", id)
		}
	}
}

func TestTrackManagerCancelledContext(t *testing.T) {
	manager := NewTrackManagerDefault()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := manager.UpdateAll(ctx, makeFrame(0)); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestTrackManagerClearKeepsIdentifiersGrowing(t *testing.T) {
	manager := NewTrackManagerDefault()
	p := Point{X: 10, Y: 10}
	frame := makeFrame(0, p)
	first, _ := manager.AddTrack(frame, patchBox(p), StrategyTemplate)
	manager.Clear()
	if len(manager.Tracks()) != 0 {
		t.Error("Clear should forget all tracks")
	}
	second, err := manager.AddTrack(frame, patchBox(p), StrategyCSRT)
	if err != nil {
		t.Fatal(err)
	}
	if second <= first {
		t.Errorf("Identifier %d must not be reused after clear, got %d", first, second)
	}
	info, _ := manager.Track(second)
	if info.RequestedStrategy != StrategyCSRT {
		t.Errorf("Requested strategy should be recorded, got %s", info.RequestedStrategy)
	}
	if !NativeAvailable() && info.Strategy != StrategyTemplate {
		t.Errorf("Expected template fallback, got %s", info.Strategy)
	}
}
