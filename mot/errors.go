package mot

import "github.com/pkg/errors"

var (
	// ErrInitializationFailed is returned when tracker could not be started with given box and frame
	ErrInitializationFailed = errors.New("tracker initialization failed")
	// ErrTrackNotFound is returned for unknown track identifier
	ErrTrackNotFound = errors.New("track not found")
	// ErrTrackTerminated is returned when operation needs a live track
	ErrTrackTerminated = errors.New("track is terminated")
)
