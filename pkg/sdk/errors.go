package ragquery

import "github.com/kailas-cloud/ragquery/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrSearchBackend          = domain.ErrSearchBackend
	ErrRerankerError          = domain.ErrRerankerError
	ErrHistoryStore           = domain.ErrHistoryStore
)
