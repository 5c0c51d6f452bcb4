package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// Qdrant payload keys.
const (
	payloadText = "text"
)

// pointQuerier is the consumer interface for Qdrant queries (ISP).
type pointQuerier interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// QdrantConfig holds gRPC connection settings.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// DialQdrant creates a Qdrant gRPC client.
func DialQdrant(cfg QdrantConfig) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return client, nil
}

// Qdrant searches a cosine collection whose points carry chunk payloads.
type Qdrant struct {
	client     pointQuerier
	collection string
}

// NewQdrant creates a Qdrant-backed searcher.
func NewQdrant(client pointQuerier, collection string) *Qdrant {
	return &Qdrant{client: client, collection: collection}
}

// Search returns up to topK chunks. Qdrant reports cosine similarity; it is
// converted to a distance so every backend shares one similarity mapping.
func (q *Qdrant) Search(
	ctx context.Context, vector []float32, topK int, filter passage.Filter,
) ([]passage.Candidate, error) {
	limit := uint64(topK)
	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if !filter.IsZero() {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(FieldDomain, filter.Domain)},
		}
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query %s: %w", q.collection, err)
	}

	out := make([]passage.Candidate, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		meta := passage.Meta{
			ChunkID:    payloadString(payload, FieldChunkID),
			DocumentID: payloadString(payload, FieldDocumentID),
			Title:      payloadString(payload, FieldTitle),
			URL:        payloadString(payload, FieldURL),
			Path:       payloadString(payload, FieldPath),
			Domain:     payloadString(payload, FieldDomain),
		}
		if meta.ChunkID == "" {
			meta.ChunkID = pointID(p.GetId())
		}
		distance := 1 - float64(p.GetScore())
		out = append(out, passage.NewCandidate(
			meta, payloadString(payload, payloadText), passage.SimilarityFromDistance(distance),
		))
	}
	return out, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10)
	default:
		return ""
	}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
