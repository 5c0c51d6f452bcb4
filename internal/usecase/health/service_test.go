package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type blockingChecker struct{}

func (blockingChecker) HealthCheck(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{},
		WithEmbedding(&mockChecker{}),
		WithLLM(&mockChecker{}),
		WithReranker(&mockChecker{}),
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{ComponentDatabase, ComponentEmbedding, ComponentLLM, ComponentReranker} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
	if _, ok := r.Checks[ComponentSearch]; ok {
		t.Error("search backend not registered but reported")
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, WithEmbedding(&mockChecker{}))
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentDatabase] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks[ComponentDatabase])
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_ProviderErrorDegrades(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		comp string
	}{
		{"embedding", WithEmbedding(&mockChecker{err: errors.New("timeout")}), ComponentEmbedding},
		{"llm", WithLLM(&mockChecker{err: errors.New("401")}), ComponentLLM},
		{"reranker", WithReranker(&mockChecker{err: errors.New("503")}), ComponentReranker},
		{"search", WithSearch(&mockDBPinger{err: errors.New("no route")}), ComponentSearch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(&mockDBPinger{}, tc.opt).Check(context.Background())
			if r.Status != Degraded {
				t.Errorf("expected %q, got %q", Degraded, r.Status)
			}
			if r.Checks[tc.comp] != CheckError {
				t.Errorf("expected %s %q, got %q", tc.comp, CheckError, r.Checks[tc.comp])
			}
		})
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(&mockDBPinger{}, WithLLM(blockingChecker{}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honour timeout")
	}
	if r.Checks[ComponentLLM] != CheckError || r.Status != Degraded {
		t.Errorf("unexpected report: %+v", r)
	}
}
