package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownSubject is returned when an operation names a subject that does
// not exist in the current snapshot.
var ErrUnknownSubject = errors.New("unknown subject")

// PersistError wraps a failed save. The snapshot that failed to save is
// still the engine's current state.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist after %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err is a failed save.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

func unknownSubject(id string) error {
	return fmt.Errorf("%w %q", ErrUnknownSubject, id)
}
