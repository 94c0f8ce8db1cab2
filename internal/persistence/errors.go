package persistence

import "errors"

var (
	// ErrOffline is wrapped in a NetworkError when the service has been put
	// offline and a remote-only operation is attempted.
	ErrOffline = errors.New("remote store is offline")
	// ErrLastPlan is returned when deleting the only plan of a project.
	ErrLastPlan = errors.New("cannot delete the last plan of a project")
)

// NetworkError reports a failed exchange with the remote store.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is or wraps a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
