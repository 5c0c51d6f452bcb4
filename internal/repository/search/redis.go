// Package search implements nearest-neighbour chunk retrieval over Redis, pgvector and Qdrant.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragquery/internal/db"
	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// Chunk hash fields.
const (
	FieldChunkID    = "chunk_id"
	FieldDocumentID = "document_id"
	FieldTitle      = "title"
	FieldURL        = "url"
	FieldPath       = "path"
	FieldDomain     = "domain"
	FieldContent    = "__content"
	FieldVector     = "__vector"
)

var returnFields = []string{
	FieldChunkID, FieldDocumentID, FieldTitle, FieldURL, FieldPath, FieldDomain, FieldContent,
}

// store is the consumer interface for Redis search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// IndexConfig describes the chunk vector index.
type IndexConfig struct {
	Dimensions     int
	Distance       db.DistanceMetric
	M              int
	EFConstruction int
}

// Redis searches chunk hashes through an FT vector index.
type Redis struct {
	store store
}

// NewRedis creates a Redis-backed searcher.
func NewRedis(s store) *Redis {
	return &Redis{store: s}
}

// IndexName returns the chunk index name.
func IndexName() string {
	return domain.KeyPrefix + "chunks:idx"
}

// ChunkKey returns the hash key of a chunk.
func ChunkKey(chunkID string) string {
	return chunkKeyPrefix() + chunkID
}

func chunkKeyPrefix() string {
	return domain.KeyPrefix + "chunk:"
}

// EnsureIndex creates the chunk index when absent.
func (r *Redis) EnsureIndex(ctx context.Context, cfg IndexConfig) error {
	exists, err := r.store.IndexExists(ctx, IndexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(IndexName()).
		Prefix(chunkKeyPrefix()).
		Tag(FieldDomain).
		Text(FieldTitle).
		VectorHNSW(FieldVector, cfg.Dimensions, cfg.Distance, cfg.M, cfg.EFConstruction).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	// Another replica may have won the race.
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Search returns up to topK chunks ordered by ascending distance.
func (r *Redis) Search(
	ctx context.Context, vector []float32, topK int, filter passage.Filter,
) ([]passage.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    IndexName(),
		VectorField:  FieldVector,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	}
	if !filter.IsZero() {
		q.TagFilters = map[string]string{FieldDomain: filter.Domain}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]passage.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		meta := passage.Meta{
			ChunkID:    e.Fields[FieldChunkID],
			DocumentID: e.Fields[FieldDocumentID],
			Title:      e.Fields[FieldTitle],
			URL:        e.Fields[FieldURL],
			Path:       e.Fields[FieldPath],
			Domain:     e.Fields[FieldDomain],
		}
		if meta.ChunkID == "" {
			meta.ChunkID = strings.TrimPrefix(e.Key, chunkKeyPrefix())
		}
		out = append(out, passage.NewCandidate(
			meta, e.Fields[FieldContent], passage.SimilarityFromDistance(e.Distance),
		))
	}
	return out, nil
}
