package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
	"github.com/kailas-cloud/ragquery/internal/logger"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// QueryService answers validated questions.
type QueryService interface {
	Query(ctx context.Context, req query.Request) (answer.Result, error)
}

// HistoryService stores and serves answered queries per user.
type HistoryService interface {
	Record(ctx context.Context, userID, query string, r *answer.Result) (string, error)
	Get(ctx context.Context, userID, id string) (domhist.Entry, error)
	List(ctx context.Context, userID string, limit, offset int) (domhist.Page, error)
	Delete(ctx context.Context, userID, id string) error
}

// HealthService aggregates dependency checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements ServerInterface.
type Server struct {
	rag           QueryService
	history       HistoryService
	health        HealthService
	defaults      query.Defaults
	metrics       http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. defaults fill query parameters the client left out.
func NewServer(
	rag QueryService,
	history HistoryService,
	health HealthService,
	defaults query.Defaults,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		rag:      rag,
		history:  history,
		health:   health,
		defaults: defaults,
		metrics:  promhttp.Handler(),
		logger:   logger,
		errorHandlers: []errorHandler{
			validationHandler,
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
			sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorResponseCodeEmbeddingError),
			sentinelHandler(domain.ErrSearchBackend, http.StatusBadGateway, ErrorResponseCodeSearchError),
			sentinelHandler(domain.ErrRerankerError, http.StatusBadGateway, ErrorResponseCodeRerankerError),
			sentinelHandler(domain.ErrHistoryStore, http.StatusInternalServerError, ErrorResponseCodeHistoryError),
		},
	}
}

// Query handles POST /api/v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request, params QueryParams) {
	var body queryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := query.New(body.toInput(), s.defaults)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.rag.Query(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	id, err := s.history.Record(r.Context(), userID(params.XUserID), req.Text(), &res)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToDTO(id, &res))
}

// ListHistory handles GET /api/v1/history.
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request, params ListHistoryParams) {
	page, err := s.history.List(r.Context(), userID(params.XUserID), derefInt(params.Limit), derefInt(params.Offset))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]historyEntryDTO, len(page.Entries))
	for i := range page.Entries {
		items[i] = entryToDTO(&page.Entries[i])
	}
	writeJSON(w, http.StatusOK, historyListResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// GetHistory handles GET /api/v1/history/{id}.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request, id string, params HistoryParams) {
	e, err := s.history.Get(r.Context(), userID(params.XUserID), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(&e))
}

// DeleteHistory handles DELETE /api/v1/history/{id}.
func (s *Server) DeleteHistory(w http.ResponseWriter, r *http.Request, id string, params HistoryParams) {
	if err := s.history.Delete(r.Context(), userID(params.XUserID), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health. Degraded still answers 200: queries can be served.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

// ParamErrorHandler answers parameter binding failures.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var pe *InvalidParamFormatError
	if errors.As(err, &pe) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "invalid parameter "+pe.ParamName)
		return
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid request")
}

func userID(p *string) string {
	if p == nil || *p == "" {
		return domhist.DefaultUserID
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// validationHandler exposes the field-level reason; it carries no internals.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, ve.Error())
		return true
	}
	if errors.Is(err, domain.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, domain.ErrInvalidQuery.Error())
		return true
	}
	return false
}

// sentinelHandler returns an errorHandler that matches a single sentinel error
// and reports only the sentinel's message.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
