// Package observability defines the hook through which client packages report
// finished operations to metrics or tracing backends without depending on them.
package observability

import "time"

// OperationContext describes one finished operation.
type OperationContext struct {
	// Component names the reporting package, e.g. "tcvdb" or "minio".
	Component string

	// Operation is the operation name, e.g. "upsert" or "put_object".
	Operation string

	// Resource and SubResource locate what was operated on,
	// e.g. database and collection, or bucket and object key.
	Resource    string
	SubResource string

	Duration time.Duration
	Error    error

	// Size is the payload size in bytes, or 0 when unknown.
	Size int64

	// Metadata carries component-specific details.
	Metadata map[string]interface{}
}

// Observer receives operation reports. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) { f(ctx) }
