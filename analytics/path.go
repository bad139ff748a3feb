// Package analytics holds pure functions over accumulated paths and zone visits.
// Nothing here keeps state: callers pass snapshots and get fresh values back.
package analytics

import (
	"github.com/LdDl/mot-zones/mot"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidFPS is returned when frame rate is not positive
var ErrInvalidFPS = errors.New("fps must be positive")

// PathDistance returns sum of euclidean distances between consecutive path points
func PathDistance(path mot.Path) float64 {
	if len(path) < 2 {
		return 0
	}
	steps := make([]float64, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		steps = append(steps, mot.Distance(path[i-1].Center, path[i].Center))
	}
	return floats.Sum(steps)
}

// PathDuration returns time between first and last path points in seconds
func PathDuration(path mot.Path) float64 {
	if len(path) < 2 {
		return 0
	}
	return path[len(path)-1].Timestamp - path[0].Timestamp
}

// DirectionChanges returns indices of path points where heading turns by more than
// thresholdDegrees. The first and the last points are never reported.
func DirectionChanges(path mot.Path, thresholdDegrees float64) []int {
	out := make([]int, 0)
	for i := 1; i < len(path)-1; i++ {
		p1, p2, p3 := path[i-1].Center, path[i].Center, path[i+1].Center
		v1 := mot.Point{X: p2.X - p1.X, Y: p2.Y - p1.Y}
		v2 := mot.Point{X: p3.X - p2.X, Y: p3.Y - p2.Y}
		if mot.AngleBetween(v1, v2) > thresholdDegrees {
			out = append(out, i)
		}
	}
	return out
}
