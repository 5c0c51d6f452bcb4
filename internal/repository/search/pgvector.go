package search

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/ragquery/internal/db/postgres"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// querier is the consumer interface for SQL reads (ISP).
type querier interface {
	Query(ctx context.Context, query string, args ...any) (postgres.Rows, error)
}

// PGVector searches a chunks table joined with its documents using cosine distance (<=>).
type PGVector struct {
	db          querier
	chunksTable string
	docsTable   string
}

// NewPGVector creates a pgvector-backed searcher.
func NewPGVector(q querier, chunksTable, docsTable string) *PGVector {
	return &PGVector{db: q, chunksTable: chunksTable, docsTable: docsTable}
}

// Search returns up to topK chunks ordered by ascending cosine distance.
func (p *PGVector) Search(
	ctx context.Context, vector []float32, topK int, filter passage.Filter,
) ([]passage.Candidate, error) {
	query, args := p.buildQuery(vector, topK, filter)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]passage.Candidate, 0, topK)
	for rows.Next() {
		var (
			meta     passage.Meta
			text     string
			distance float64
		)
		if err := rows.Scan(
			&meta.ChunkID, &meta.DocumentID, &meta.Title, &meta.URL,
			&meta.Path, &meta.Domain, &text, &distance,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, passage.NewCandidate(meta, text, passage.SimilarityFromDistance(distance)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (p *PGVector) buildQuery(vector []float32, topK int, filter passage.Filter) (string, []any) {
	query := fmt.Sprintf(`SELECT c.id::text, c.document_id::text,
	COALESCE(d.title, ''), COALESCE(d.source_url, ''), COALESCE(d.file_path, ''), COALESCE(d.domain, ''),
	c.chunk_text, c.embedding <=> $1 AS distance
FROM %s c
JOIN %s d ON d.id = c.document_id`,
		pq.QuoteIdentifier(p.chunksTable), pq.QuoteIdentifier(p.docsTable))

	args := []any{pgvector.NewVector(vector), topK}
	if !filter.IsZero() {
		query += "\nWHERE d.domain = $3"
		args = append(args, filter.Domain)
	}
	query += "\nORDER BY distance ASC\nLIMIT $2"
	return query, args
}
