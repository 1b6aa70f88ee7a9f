package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a document has no chunks to ingest.
	ErrEmptyInput = errors.New("no chunks to ingest")

	// ErrNoResults is returned when the index holds no point near the query.
	ErrNoResults = errors.New("no stored point matched the query")

	// ErrMalformedPayload is returned when a retrieved point lacks a textual contents field.
	ErrMalformedPayload = errors.New("retrieved point has no contents field")

	// ErrNoChoices is returned when the generation service produced no candidate.
	ErrNoChoices = errors.New("generation returned no choices")

	// ErrInvalidText is returned when a source is not valid UTF-8 text.
	ErrInvalidText = errors.New("not valid text")

	// ErrService matches every ServiceError via errors.Is.
	ErrService = errors.New("upstream service failure")
)

// Service names used in ServiceError.
const (
	ServiceFilesystem  = "filesystem"
	ServiceEmbedding   = "embedding"
	ServiceVectorIndex = "vector-index"
	ServiceGeneration  = "generation"
)

// ServiceError reports a failure of an external collaborator.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// NewServiceError wraps err as a failure of service while performing op.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrService.
func (e *ServiceError) Is(target error) bool { return target == ErrService }
