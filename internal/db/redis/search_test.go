package redis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/ragquery/internal/db"
)

func knnQuery() *db.KNNQuery {
	return &db.KNNQuery{
		IndexName:    "ragq:chunks:idx",
		Vector:       []float32{0.1, 0.2, 0.3, 0.4},
		K:            5,
		ReturnFields: []string{"chunk_id", "title"},
	}
}

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "ragq:chunks:idx"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("ragq:chunk:c1"),
			mock.RedisArray(
				mock.RedisString("chunk_id"), mock.RedisString("c1"),
				mock.RedisString("title"), mock.RedisString("Intro"),
				mock.RedisString("__vector_score"), mock.RedisString("0.1"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), knnQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	e := res.Entries[0]
	if e.Key != "ragq:chunk:c1" {
		t.Errorf("key = %q", e.Key)
	}
	if math.Abs(e.Distance-0.1) > 1e-9 {
		t.Errorf("distance = %v, want 0.1", e.Distance)
	}
	if e.Fields["title"] != "Intro" {
		t.Errorf("title = %q", e.Fields["title"])
	}
	if _, ok := e.Fields["__vector_score"]; ok {
		t.Error("score field should be removed from Fields")
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), knnQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if _, err := s.SearchKNN(context.Background(), knnQuery()); !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_DomainFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var captured []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			captured = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	q := knnQuery()
	q.TagFilters = map[string]string{"domain": "docs.python.org"}

	s := NewStoreForTest(c)
	if _, err := s.SearchKNN(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(captured, " ")
	assertContains(t, joined, `(@domain:{docs\.python\.org})=>[KNN 5 @__vector $BLOB AS __vector_score]`)
	assertContains(t, joined, "SORTBY __vector_score ASC")
	assertContains(t, joined, "RETURN 3 chunk_id title __vector_score")
	assertContains(t, joined, "DIALECT 2")
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	tests := []struct {
		name string
		q    *db.KNNQuery
	}{
		{"no index", &db.KNNQuery{Vector: []float32{1}, K: 1}},
		{"no vector", &db.KNNQuery{IndexName: "idx", K: 1}},
		{"zero k", &db.KNNQuery{IndexName: "idx", Vector: []float32{1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.SearchKNN(context.Background(), tc.q); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1.0, -2.5})
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	// 1.0 = 0x3f800000 little-endian
	if b[0] != 0x00 || b[3] != 0x3f {
		t.Errorf("unexpected encoding: % x", []byte(b))
	}
}

func TestBuildTagFilters(t *testing.T) {
	if got := buildTagFilters(nil); got != "" {
		t.Errorf("nil filters: got %q", got)
	}
	if got := buildTagFilters(map[string]string{"domain": ""}); got != "" {
		t.Errorf("empty value should be skipped: got %q", got)
	}

	got := buildTagFilters(map[string]string{"b": "x y", "a": "v"})
	want := `@a:{v} @b:{x\ y}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildTagFilters_EscapesQuerySyntax(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"a|b", `@domain:{a\|b}`},
		{`a\b`, `@domain:{a\\b}`},
		{"[x]", `@domain:{\[x\]}`},
		{"what?", `@domain:{what\?}`},
		{"a`b", "@domain:{a\\`b}"},
		{"docs.python.org", `@domain:{docs\.python\.org}`},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := buildTagFilters(map[string]string{"domain": tt.value})
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
