package mot

import "github.com/pkg/errors"

// PathPoint is a single observation of tracked target
type PathPoint struct {
	Frame     int       `json:"frame"`
	Timestamp float64   `json:"timestamp"`
	Center    Point     `json:"center"`
	Box       Rectangle `json:"box"`
}

// Path is append-only, frame ordered history of a track
type Path []PathPoint

// Append returns path extended by point. Frame index must not go backwards.
func (path Path) Append(point PathPoint) (Path, error) {
	if n := len(path); n > 0 && point.Frame < path[n-1].Frame {
		return path, errors.Errorf("path point for frame %d is older than last frame %d", point.Frame, path[n-1].Frame)
	}
	return append(path, point), nil
}

// Clone returns independent copy of path
func (path Path) Clone() Path {
	if path == nil {
		return nil
	}
	out := make(Path, len(path))
	copy(out, path)
	return out
}

// Centers returns center positions in path order
func (path Path) Centers() []Point {
	out := make([]Point, len(path))
	for i := range path {
		out[i] = path[i].Center
	}
	return out
}
