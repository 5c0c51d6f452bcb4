package search

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// --- Mocks ---

type fakePointQuerier struct {
	req    *qdrant.QueryPoints
	points []*qdrant.ScoredPoint
	err    error
}

func (f *fakePointQuerier) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.req = req
	return f.points, f.err
}

// --- Tests ---

func TestQdrantSearch_MapsPoints(t *testing.T) {
	fq := &fakePointQuerier{points: []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewIDNum(7),
			Score: 0.9,
			Payload: qdrant.NewValueMap(map[string]any{
				FieldDocumentID: int64(3),
				FieldTitle:      "Tutorial",
				FieldURL:        "https://go.dev/doc/tutorial",
				FieldDomain:     "go.dev",
				payloadText:     "chunk body",
			}),
		},
		{
			Id:    qdrant.NewID("5b1d2c0e-8c9a-4c5e-9a43-1e2f3a4b5c6d"),
			Score: -0.2,
			Payload: qdrant.NewValueMap(map[string]any{
				payloadText: "opposite",
			}),
		},
	}}

	got, err := NewQdrant(fq, "chunks").Search(context.Background(), testVector(), 10, passage.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "7", got[0].ChunkID())
	assert.Equal(t, "3", got[0].DocumentID())
	assert.Equal(t, "Tutorial", got[0].Title())
	assert.Equal(t, "chunk body", got[0].Text())
	assert.InDelta(t, 0.9, got[0].Similarity(), 1e-6)

	assert.Equal(t, "5b1d2c0e-8c9a-4c5e-9a43-1e2f3a4b5c6d", got[1].ChunkID())
	assert.Zero(t, got[1].Similarity())

	require.NotNil(t, fq.req)
	assert.Equal(t, "chunks", fq.req.GetCollectionName())
	assert.Equal(t, uint64(10), fq.req.GetLimit())
	assert.Nil(t, fq.req.GetFilter())
}

func TestQdrantSearch_DomainFilter(t *testing.T) {
	fq := &fakePointQuerier{}

	_, err := NewQdrant(fq, "chunks").Search(context.Background(), testVector(), 5, passage.Filter{Domain: "go.dev"})
	require.NoError(t, err)

	must := fq.req.GetFilter().GetMust()
	require.Len(t, must, 1)
	field := must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, FieldDomain, field.GetKey())
	assert.Equal(t, "go.dev", field.GetMatch().GetKeyword())
}

func TestQdrantSearch_Error(t *testing.T) {
	boom := errors.New("unavailable")
	fq := &fakePointQuerier{err: boom}

	_, err := NewQdrant(fq, "chunks").Search(context.Background(), testVector(), 5, passage.Filter{})
	require.ErrorIs(t, err, boom)
}

func TestPayloadString(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{"s": "x", "i": int64(42), "b": true})

	assert.Equal(t, "x", payloadString(payload, "s"))
	assert.Equal(t, "42", payloadString(payload, "i"))
	assert.Empty(t, payloadString(payload, "b"))
	assert.Empty(t, payloadString(payload, "missing"))
}
