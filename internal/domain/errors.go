package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a query request that failed validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSearchBackend signals a vector search backend failure.
	ErrSearchBackend = errors.New("vector search failed")
	// ErrRerankerError signals a reranker service failure.
	ErrRerankerError = errors.New("reranker error")
	// ErrHistoryStore signals a query history persistence failure.
	ErrHistoryStore = errors.New("history store error")
)

// ValidationError wraps ErrInvalidQuery with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidQuery.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidQuery }

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
