package httpcache

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-output-cache/cache"
	ilog "github.com/goliatone/go-output-cache/internal/log"
	"github.com/goliatone/go-output-cache/internal/metrics"
)

// AppError is the JSON error body of the admin endpoints.
type AppError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeInvalidJSON   = "INVALID_JSON"
	CodeInternalError = "INTERNAL_ERROR"
)

func (e *AppError) Error() string { return e.Code + ": " + e.Message }

func badRequest(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: msg}
}

func invalidJSON(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: msg}
}

type successEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Err *AppError `json:"error"`
}

// handlerFunc is an http.Handler that reports failures as AppError bodies.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		writeError(w, err)
	}
}

// Admin exposes listing and purging of the output cache over JSON.
type Admin struct {
	provider cache.OutputCacheProvider
	keys     *cache.KeyBuilder
	logger   ilog.Logger
	metrics  metrics.Interface
}

func NewAdmin(provider cache.OutputCacheProvider, keys *cache.KeyBuilder, logger ilog.Logger, m metrics.Interface) *Admin {
	if keys == nil {
		keys = cache.NewKeyBuilder("")
	}
	return &Admin{provider: provider, keys: keys, logger: ilog.OrNop(logger), metrics: metrics.OrNoop(m)}
}

// Routes mounts:
//
//	GET    /items?page=0&size=20   list cached items without content
//	GET    /count
//	DELETE /items                  remove everything
//	POST   /invalidate             {"tags":[..],"routes":[..],"prefix_routes":[..],"keys":[..]}
func (a *Admin) Routes() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/items", handlerFunc(a.list))
	r.Method(http.MethodGet, "/count", handlerFunc(a.count))
	r.Method(http.MethodDelete, "/items", handlerFunc(a.clear))
	r.Method(http.MethodPost, "/invalidate", handlerFunc(a.invalidate))
	return r
}

type pageResponse struct {
	Items      []*cache.OutputCacheItem `json:"items"`
	PageIndex  int                      `json:"page_index"`
	PageSize   int                      `json:"page_size"`
	Total      int                      `json:"total"`
	TotalPages int                      `json:"total_pages"`
}

func (a *Admin) list(w http.ResponseWriter, r *http.Request) error {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		return err
	}
	size, err := queryInt(r, "size", 20)
	if err != nil {
		return err
	}

	p, err := a.provider.All(r.Context(), page, size, false)
	if err != nil {
		return err
	}
	writeSuccess(w, http.StatusOK, pageResponse{
		Items:      p.Items,
		PageIndex:  p.PageIndex,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	})
	return nil
}

func (a *Admin) count(w http.ResponseWriter, r *http.Request) error {
	n, err := a.provider.Count(r.Context())
	if err != nil {
		return err
	}
	writeSuccess(w, http.StatusOK, map[string]int{"count": n})
	return nil
}

func (a *Admin) clear(w http.ResponseWriter, r *http.Request) error {
	n, err := a.provider.Count(r.Context())
	if err != nil {
		return err
	}
	if err := a.provider.RemoveAll(r.Context()); err != nil {
		return err
	}
	a.metrics.AddInvalidated("all", n)
	a.logger.Info("outputcache.admin.clear", "removed", n)
	writeSuccess(w, http.StatusOK, map[string]int{"removed": n})
	return nil
}

// InvalidateRequest selects what to purge. Every non-empty field is applied.
type InvalidateRequest struct {
	Tags         []string `json:"tags"`
	Routes       []string `json:"routes"`
	PrefixRoutes []string `json:"prefix_routes"`
	Keys         []string `json:"keys"`
}

func (a *Admin) invalidate(w http.ResponseWriter, r *http.Request) error {
	var req InvalidateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if len(req.Tags)+len(req.Routes)+len(req.PrefixRoutes)+len(req.Keys) == 0 {
		return badRequest("nothing to invalidate")
	}

	n, err := Purge(r.Context(), a.provider, a.keys, req)
	if err != nil {
		return err
	}
	for kind, count := range n {
		a.metrics.AddInvalidated(kind, count)
	}
	a.logger.Info("outputcache.admin.invalidate", "tags", req.Tags, "routes", req.Routes, "removed", n)
	writeSuccess(w, http.StatusOK, map[string]any{"removed": n})
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return n, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return invalidJSON("empty body")
	}
	defer func() {
		_ = r.Body.Close()
	}()

	const maxSize = 1 << 20
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidJSON("invalid JSON")
	}
	if dec.More() {
		return invalidJSON("multiple JSON values")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	var app *AppError
	if errors.As(err, &app) {
		writeJSON(w, app.Status, errorEnvelope{Err: app})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorEnvelope{Err: &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "unexpected error",
	}})
}
