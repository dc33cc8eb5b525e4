package shared

import "fmt"

// ValidationError reports a malformed or missing required field in an
// imported row or manual entry. The offending row is skipped and counted;
// the remainder of the batch continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Is matches any ValidationError when the target carries no field
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// ErrTriggerFailed indicates the external import trigger could not be
// delivered after the configured number of backoff attempts
type ErrTriggerFailed struct {
	Attempts int
	Last     error
}

func (e ErrTriggerFailed) Error() string {
	return fmt.Sprintf("import trigger failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e ErrTriggerFailed) Unwrap() error {
	return e.Last
}
