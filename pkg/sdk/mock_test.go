package ragquery

import (
	"context"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
)

// --- ragUseCase mock ---

type mockRagUC struct {
	queryFn func(ctx context.Context, req query.Request) (answer.Result, error)
	calls   int
}

func (m *mockRagUC) Query(ctx context.Context, req query.Request) (answer.Result, error) {
	m.calls++
	return m.queryFn(ctx, req)
}

// --- historyUseCase mock ---

type mockHistoryUC struct {
	recordFn func(ctx context.Context, userID, query string, r *answer.Result) (string, error)
	getFn    func(ctx context.Context, userID, id string) (domhist.Entry, error)
	listFn   func(ctx context.Context, userID string, limit, offset int) (domhist.Page, error)
	deleteFn func(ctx context.Context, userID, id string) error
}

func (m *mockHistoryUC) Record(ctx context.Context, userID, query string, r *answer.Result) (string, error) {
	return m.recordFn(ctx, userID, query, r)
}

func (m *mockHistoryUC) Get(ctx context.Context, userID, id string) (domhist.Entry, error) {
	return m.getFn(ctx, userID, id)
}

func (m *mockHistoryUC) List(ctx context.Context, userID string, limit, offset int) (domhist.Page, error) {
	return m.listFn(ctx, userID, limit, offset)
}

func (m *mockHistoryUC) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- public provider mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockGenerator struct {
	fn func(ctx context.Context, prompt string, temperature float64) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return m.fn(ctx, prompt, temperature)
}

type mockReranker struct{}

func (mockReranker) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	return make([]float64, len(passages)), nil
}

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }
func (m *mockStore) Close()                       { m.closed = true }

// --- helpers ---

func testClient(ragSvc ragUseCase, historySvc historyUseCase) *Client {
	return &Client{
		ragSvc:     ragSvc,
		historySvc: historySvc,
		defaults:   query.StandardDefaults(),
	}
}

func testResult() answer.Result {
	c := passage.NewCandidate(passage.Meta{
		ChunkID:    "c1",
		DocumentID: "d1",
		Title:      "Guide",
		URL:        "https://docs.example.com/guide",
	}, "Install with the package manager.", 0.9)
	final := passage.Number([]passage.Ranked{passage.Rank(c, 0.95)})
	sources := []answer.Source{answer.NewSource(final[0], true)}
	return answer.NewAnswer("Use the package manager [SOURCE 1].", 0.92, sources,
		answer.Timings{Total: 1500},
		answer.LLMInfo{Provider: "vllm", Model: "qwen"})
}
