package vectordb

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. The typed errors below match them.
var (
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrInvalidSearch = errors.New("invalid search")
)

// InvalidFilterError reports a predicate tree that cannot be rendered.
// It is raised before any network call.
type InvalidFilterError struct {
	// Field is the field the failing predicate references, if any.
	Field  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("vectordb: invalid filter: %s", e.Reason)
	}
	return fmt.Sprintf("vectordb: invalid filter on field %q: %s", e.Field, e.Reason)
}

func (e *InvalidFilterError) Is(target error) bool {
	return target == ErrInvalidFilter
}

// InvalidQueryError reports query, delete or update parameters that fail validation.
type InvalidQueryError struct {
	Param  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("vectordb: invalid query parameter %q: %s", e.Param, e.Reason)
}

func (e *InvalidQueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// InvalidSearchError reports a search request that cannot be assembled.
type InvalidSearchError struct {
	// Branch locates the offending branch, e.g. "ann[1]" or "sparse[0]".
	// Empty for request-level problems.
	Branch string
	Reason string
}

func (e *InvalidSearchError) Error() string {
	if e.Branch == "" {
		return fmt.Sprintf("vectordb: invalid search: %s", e.Reason)
	}
	return fmt.Sprintf("vectordb: invalid search in %s: %s", e.Branch, e.Reason)
}

func (e *InvalidSearchError) Is(target error) bool {
	return target == ErrInvalidSearch
}

// IsValidationError reports whether err was raised by local validation,
// meaning nothing was sent over the wire.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidSearch)
}

func filterError(field, format string, args ...any) error {
	return &InvalidFilterError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func queryError(param, format string, args ...any) error {
	return &InvalidQueryError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

func searchError(branch, format string, args ...any) error {
	return &InvalidSearchError{Branch: branch, Reason: fmt.Sprintf(format, args...)}
}
