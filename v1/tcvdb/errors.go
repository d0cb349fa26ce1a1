package tcvdb

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. Each typed error below matches one.
var (
	// ErrTransport is matched by TransportError.
	ErrTransport = errors.New("transport failure")

	// ErrRedirectLoop is matched by RedirectLoopError.
	ErrRedirectLoop = errors.New("redirect attempts exhausted")

	// ErrService is matched by ServiceError.
	ErrService = errors.New("request rejected by service")

	// ErrPartialBatch is matched by PartialBatchFailureError.
	ErrPartialBatch = errors.New("batched write partially failed")

	// ErrCancelled is matched by CancelledError.
	ErrCancelled = errors.New("call cancelled")

	// ErrClosed is returned by a transport after Close.
	ErrClosed = errors.New("transport closed")
)

// TransportError is returned when no envelope could be obtained from a node,
// either because the failure is not retryable or because the retry budget is spent.
type TransportError struct {
	Method Method
	Target string

	// Attempts is the number of failed attempts, undecodable responses included.
	Attempts int

	// Retryable is false when the failure was surfaced without retrying.
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[TCVDB] %s to %s failed after %d attempt(s): %v", e.Method, e.Target, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RedirectLoopError is returned when every allowed attempt answered with a
// redirect. Visited lists the targets in the order they were contacted.
type RedirectLoopError struct {
	Method      Method
	Visited     []string
	MaxAttempts int
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("[TCVDB] %s still redirected after %d attempt(s): %s",
		e.Method, e.MaxAttempts, strings.Join(e.Visited, " -> "))
}

func (e *RedirectLoopError) Is(target error) bool { return target == ErrRedirectLoop }

// ServiceError carries a non-zero status code returned without a redirect.
// It is never retried.
type ServiceError struct {
	Method  Method
	Target  string
	Code    int32
	Message string

	// RequestID is empty when the server did not report one.
	RequestID string
}

func (e *ServiceError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("[TCVDB] %s rejected by %s: code=%d msg=%s requestId=%s", e.Method, e.Target, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("[TCVDB] %s rejected by %s: code=%d msg=%s", e.Method, e.Target, e.Code, e.Message)
}

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// PartialBatchFailureError reports a split write in which sub-batch
// FailedBatch failed after SucceededBatches sub-batches had been applied.
type PartialBatchFailureError struct {
	Method       Method
	FailedBatch  int
	TotalBatches int

	SucceededBatches   int
	SucceededDocuments int

	// AffectedCount and Warnings aggregate the sub-batches that succeeded.
	AffectedCount uint64
	Warnings      []string

	Err error
}

func (e *PartialBatchFailureError) Error() string {
	return fmt.Sprintf("[TCVDB] %s sub-batch %d of %d failed after %d document(s) were written: %v",
		e.Method, e.FailedBatch, e.TotalBatches, e.SucceededDocuments, e.Err)
}

func (e *PartialBatchFailureError) Unwrap() error { return e.Err }

func (e *PartialBatchFailureError) Is(target error) bool { return target == ErrPartialBatch }

// CancelledError is returned when the caller's context ends a call before it
// resolves. Err is the context error, so errors.Is(err, context.Canceled) holds.
type CancelledError struct {
	Method   Method
	Target   string
	Attempts int
	Err      error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("[TCVDB] %s to %s cancelled after %d attempt(s): %v", e.Method, e.Target, e.Attempts, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// IsRedirectLoop reports whether err is or wraps a RedirectLoopError.
func IsRedirectLoop(err error) bool { return errors.Is(err, ErrRedirectLoop) }

// IsService reports whether err is or wraps a ServiceError.
func IsService(err error) bool { return errors.Is(err, ErrService) }

// IsPartialBatchFailure reports whether err is or wraps a PartialBatchFailureError.
func IsPartialBatchFailure(err error) bool { return errors.Is(err, ErrPartialBatch) }

// IsCancelled reports whether err is or wraps a CancelledError.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// ServiceCode extracts the status code of a ServiceError, if err carries one.
func ServiceCode(err error) (int32, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// errorKind names the error class for metrics labels.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRedirectLoop(err):
		return "redirect_loop"
	case IsCancelled(err):
		return "cancelled"
	case IsService(err):
		return "service"
	case IsTransport(err):
		return "transport"
	default:
		return "error"
	}
}
