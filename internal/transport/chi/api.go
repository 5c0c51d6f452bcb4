package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorResponseCode is the machine-readable error code returned in error bodies.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized     ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound         ErrorResponseCode = "not_found"
	ErrorResponseCodeEmbeddingError   ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeSearchError      ErrorResponseCode = "search_backend_error"
	ErrorResponseCodeRerankerError    ErrorResponseCode = "reranker_error"
	ErrorResponseCodeHistoryError     ErrorResponseCode = "history_store_error"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// UserIDHeader scopes history to a caller.
const UserIDHeader = "X-User-Id"

// QueryParams are the header parameters of POST /api/v1/query.
type QueryParams struct {
	XUserID *string
}

// ListHistoryParams are the parameters of GET /api/v1/history.
type ListHistoryParams struct {
	XUserID *string
	Limit   *int
	Offset  *int
}

// HistoryParams are the header parameters of the single-entry history routes.
type HistoryParams struct {
	XUserID *string
}

// ServerInterface is the set of API handlers.
type ServerInterface interface {
	// POST /api/v1/query
	Query(w http.ResponseWriter, r *http.Request, params QueryParams)
	// GET /api/v1/history
	ListHistory(w http.ResponseWriter, r *http.Request, params ListHistoryParams)
	// GET /api/v1/history/{id}
	GetHistory(w http.ResponseWriter, r *http.Request, id string, params HistoryParams)
	// DELETE /api/v1/history/{id}
	DeleteHistory(w http.ResponseWriter, r *http.Request, id string, params HistoryParams)
	// GET /health
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures route registration.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// HandlerWithOptions registers every route of si on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	errHandler := options.ErrorHandlerFunc
	if errHandler == nil {
		errHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	w := &wrapper{handler: si, errorHandler: errHandler}

	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/query", w.query)
		r.Get(options.BaseURL+"/api/v1/history", w.listHistory)
		r.Get(options.BaseURL+"/api/v1/history/{id}", w.getHistory)
		r.Delete(options.BaseURL+"/api/v1/history/{id}", w.deleteHistory)
		r.Get(options.BaseURL+"/health", si.HealthCheck)
		r.Get(options.BaseURL+"/metrics", si.Metrics)
	})
	return r
}

// wrapper binds request parameters before calling the handler.
type wrapper struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw *wrapper) query(w http.ResponseWriter, r *http.Request) {
	var params QueryParams
	user, err := bindUserHeader(r)
	if err != nil {
		sw.errorHandler(w, r, err)
		return
	}
	params.XUserID = user
	sw.handler.Query(w, r, params)
}

func (sw *wrapper) listHistory(w http.ResponseWriter, r *http.Request) {
	var params ListHistoryParams
	user, err := bindUserHeader(r)
	if err != nil {
		sw.errorHandler(w, r, err)
		return
	}
	params.XUserID = user

	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		sw.errorHandler(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &params.Offset); err != nil {
		sw.errorHandler(w, r, &InvalidParamFormatError{ParamName: "offset", Err: err})
		return
	}
	sw.handler.ListHistory(w, r, params)
}

func (sw *wrapper) getHistory(w http.ResponseWriter, r *http.Request) {
	id, params, ok := sw.bindHistory(w, r)
	if !ok {
		return
	}
	sw.handler.GetHistory(w, r, id, params)
}

func (sw *wrapper) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id, params, ok := sw.bindHistory(w, r)
	if !ok {
		return
	}
	sw.handler.DeleteHistory(w, r, id, params)
}

func (sw *wrapper) bindHistory(w http.ResponseWriter, r *http.Request) (string, HistoryParams, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		sw.errorHandler(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return "", HistoryParams{}, false
	}

	user, err := bindUserHeader(r)
	if err != nil {
		sw.errorHandler(w, r, err)
		return "", HistoryParams{}, false
	}
	return id, HistoryParams{XUserID: user}, true
}

func bindUserHeader(r *http.Request) (*string, error) {
	values := r.Header.Values(UserIDHeader)
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) > 1 {
		return nil, &InvalidParamFormatError{
			ParamName: UserIDHeader,
			Err:       fmt.Errorf("expected one value, got %d", len(values)),
		}
	}

	var user string
	err := runtime.BindStyledParameterWithOptions("simple", UserIDHeader, values[0], &user,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Required: false})
	if err != nil {
		return nil, &InvalidParamFormatError{ParamName: UserIDHeader, Err: err}
	}
	return &user, nil
}
