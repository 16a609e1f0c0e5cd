package grading

import "fmt"

// InvocationError wraps the final underlying cause of a failed grading call,
// whether retries were exhausted or the failure was not retryable at all.
type InvocationError struct {
	Attempts int
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("grading invocation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// UnrecognizedFormatError indicates the response body matched neither the
// canonical typed-attribute shape nor the legacy generated-text shape. A
// truncated snippet of the raw body is kept for diagnostics.
type UnrecognizedFormatError struct {
	Snippet string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized grading response format: %s", e.Snippet)
}

// MissingFieldError names the first required result field found missing or
// empty by the validator.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("grading result is missing required field %q", e.Field)
}
