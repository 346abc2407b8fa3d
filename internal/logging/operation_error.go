package logging

import (
	"fmt"
	"strings"
)

// OperationError annotates an error with operation metadata. ImageID is set
// for failures scoped to a single item of a batch.
type OperationError struct {
	Operation string
	RequestID string
	ImageID   string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	var tags []string
	if e.RequestID != "" {
		tags = append(tags, "request_id="+e.RequestID)
	}
	if e.ImageID != "" {
		tags = append(tags, "image_id="+e.ImageID)
	}
	if len(tags) == 0 {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Operation, strings.Join(tags, " "), e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps an error with structured context about where it occurred.
func NewOperationError(operation, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, Err: err}
}

// NewImageOperationError wraps a per-item error with the owning image id.
func NewImageOperationError(operation, requestID, imageID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, ImageID: imageID, Err: err}
}
