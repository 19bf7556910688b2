package client

import "fmt"

// StatusError reports a non-success response from the service. The raw
// status and body are retained for diagnostics; Code and Message are filled
// in when the body parses as the service's error shape.
type StatusError struct {
	Status  int
	Body    string
	Code    string
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service returned status %d (code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("service returned status %d: %s", e.Status, truncate(e.Body, 256))
}

// PartitionFetchError reports a failed fetch of one result partition.
// Partitions already fetched are unaffected.
type PartitionFetchError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *PartitionFetchError) Error() string {
	return fmt.Sprintf("fetching partition %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *PartitionFetchError) Unwrap() error {
	return e.Err
}

// PartitionCountError reports a failed single-partition assertion: the
// caller asked for the only partition of a result set that has several.
type PartitionCountError struct {
	Count int
}

// Error implements the error interface.
func (e *PartitionCountError) Error() string {
	return fmt.Sprintf("expected a single partition, result set has %d", e.Count)
}

// BindingError reports a bind value of a type the wire encoding cannot
// carry. It is detected at Bind time but surfaced when the statement is
// submitted, keeping the builder chainable.
type BindingError struct {
	Position int
	Value    any
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	return fmt.Sprintf("binding %d: unsupported value type %T", e.Position, e.Value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
