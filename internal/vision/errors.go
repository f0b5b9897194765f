package vision

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("vision api key not configured")
	// ErrEmptyImage is returned when a task that needs an image gets none.
	ErrEmptyImage = errors.New("no image provided")
	// ErrEmptyCommand is returned for a blank natural-language command.
	ErrEmptyCommand = errors.New("no command provided")
)

// RemoteServiceFailure wraps every failure of a model round trip: transport
// errors, non-2xx replies and replies that cannot be decoded.
type RemoteServiceFailure struct {
	Task       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteServiceFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote service failure (status %d): %s", e.Task, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: remote service failure: %s", e.Task, e.Message)
}

func (e *RemoteServiceFailure) Unwrap() error {
	return e.Err
}

// IsRemoteFailure reports whether err is, or wraps, a RemoteServiceFailure.
func IsRemoteFailure(err error) bool {
	var rf *RemoteServiceFailure
	return errors.As(err, &rf)
}
