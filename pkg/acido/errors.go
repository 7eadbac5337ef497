package acido

import "fmt"

// ErrorClass classifies a Cloud Adapter failure. Only ClassTransient and
// ClassQuota are ever retried automatically.
type ErrorClass string

const (
	ClassAuth      ErrorClass = "auth"
	ClassQuota     ErrorClass = "quota_exceeded"
	ClassNotFound  ErrorClass = "not_found"
	ClassConflict  ErrorClass = "conflict"
	ClassTransient ErrorClass = "transient_provider_error"
	ClassFatal     ErrorClass = "fatal_provider_error"
)

// CloudError wraps a provider failure with its retry classification. Callers
// use errors.As to recover the Class and decide whether to retry.
type CloudError struct {
	Class ErrorClass
	Op    string
	Err   error
}

func (e *CloudError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
}

func (e *CloudError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error class is a retry candidate.
func (e *CloudError) Retryable() bool {
	return e.Class == ClassTransient || e.Class == ClassQuota
}

// NewCloudError constructs a classified error for op.
func NewCloudError(op string, class ErrorClass, err error) *CloudError {
	return &CloudError{Op: op, Class: class, Err: err}
}

// ResourceBusyError is returned by NetworkStack destruction when a subnet
// still has attached container groups after the retry schedule is exhausted.
type ResourceBusyError struct {
	Resource string
	Reason   string
}

func (e *ResourceBusyError) Error() string {
	return fmt.Sprintf("%s is busy: %s", e.Resource, e.Reason)
}
