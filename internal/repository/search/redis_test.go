package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/ragquery/internal/db"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// --- Mocks ---

type mockStore struct {
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}

// --- Tests ---

func TestRedisSearch_MapsEntries(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "ragq:chunks:idx" {
				t.Errorf("unexpected index: %s", q.IndexName)
			}
			if q.K != 30 {
				t.Errorf("unexpected K: %d", q.K)
			}
			if q.TagFilters != nil {
				t.Errorf("expected no tag filters, got %v", q.TagFilters)
			}
			return &db.SearchResult{
				Total: 2,
				Entries: []db.SearchEntry{
					{
						Key:      "ragq:chunk:c1",
						Distance: 0.12,
						Fields: map[string]string{
							FieldChunkID:    "c1",
							FieldDocumentID: "d1",
							FieldTitle:      "Intro",
							FieldURL:        "https://docs.python.org/3/intro",
							FieldDomain:     "docs.python.org",
							FieldContent:    "hello world",
						},
					},
					{
						Key:      "ragq:chunk:c2",
						Distance: 1.4,
						Fields:   map[string]string{FieldContent: "far away"},
					},
				},
			}, nil
		},
	}

	got, err := NewRedis(ms).Search(context.Background(), testVector(), 30, passage.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ChunkID() != "c1" || got[0].Title() != "Intro" || got[0].Text() != "hello world" {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	if math.Abs(got[0].Similarity()-0.88) > 1e-9 {
		t.Errorf("similarity = %v, want 0.88", got[0].Similarity())
	}
	if got[1].ChunkID() != "c2" {
		t.Errorf("chunk id should fall back to key suffix, got %q", got[1].ChunkID())
	}
	if got[1].Similarity() != 0 {
		t.Errorf("similarity should clamp at 0, got %v", got[1].Similarity())
	}
}

func TestRedisSearch_DomainFilter(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.TagFilters[FieldDomain] != "docs.python.org" {
				t.Errorf("unexpected tag filters: %v", q.TagFilters)
			}
			return &db.SearchResult{}, nil
		},
	}

	got, err := NewRedis(ms).Search(context.Background(), testVector(), 5, passage.Filter{Domain: "docs.python.org"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestRedisSearch_Error(t *testing.T) {
	boom := errors.New("boom")
	ms := &mockStore{
		searchKNNFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
			return nil, boom
		},
	}

	_, err := NewRedis(ms).Search(context.Background(), testVector(), 5, passage.Filter{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	created := false
	ms := &mockStore{
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			created = true
			return nil
		},
	}

	if err := NewRedis(ms).EnsureIndex(context.Background(), IndexConfig{Dimensions: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("index should not be created when it exists")
	}
}

func TestEnsureIndex_Creates(t *testing.T) {
	var def *db.IndexDefinition
	ms := &mockStore{
		indexExistsFn: func(context.Context, string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, d *db.IndexDefinition) error {
			def = d
			return nil
		},
	}

	cfg := IndexConfig{Dimensions: 1024, Distance: db.DistanceCosine, M: 16, EFConstruction: 200}
	if err := NewRedis(ms).EnsureIndex(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def == nil {
		t.Fatal("expected CreateIndex call")
	}
	if def.Name != "ragq:chunks:idx" || def.Prefixes[0] != "ragq:chunk:" {
		t.Errorf("unexpected definition: %s", def)
	}
	if len(def.Fields) != 3 || def.Fields[2].VectorDim != 1024 {
		t.Errorf("unexpected fields: %+v", def.Fields)
	}
}

func TestEnsureIndex_RaceIsIgnored(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(context.Context, string) (bool, error) { return false, nil },
		createIndexFn: func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists },
	}

	if err := NewRedis(ms).EnsureIndex(context.Background(), IndexConfig{Dimensions: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_InvalidDimensions(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(context.Context, string) (bool, error) { return false, nil },
	}

	if err := NewRedis(ms).EnsureIndex(context.Background(), IndexConfig{}); err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestChunkKey(t *testing.T) {
	if got := ChunkKey("42"); got != "ragq:chunk:42" {
		t.Errorf("got %q", got)
	}
}
