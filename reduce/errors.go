package reduce

import "fmt"

// ReductionError reports a reducer or user-supplied group function failing on
// a specific key, during either the local or the global aggregation stage.
type ReductionError struct {
	Key   string
	Cause error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("reduction failed on key %q: %v", e.Key, e.Cause)
}

func (e *ReductionError) Unwrap() error { return e.Cause }
