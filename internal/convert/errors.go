package convert

import "fmt"

// MalformedLockfileError reports a source lockfile that cannot be turned
// into a consistent graph.
type MalformedLockfileError struct {
	File   string
	Reason string
	Err    error
}

func (e *MalformedLockfileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.File, e.Reason)
}

func (e *MalformedLockfileError) Unwrap() error {
	return e.Err
}
