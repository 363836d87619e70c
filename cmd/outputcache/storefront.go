package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/displaycontrol"
	"github.com/goliatone/go-output-cache/entity"
	"github.com/goliatone/go-output-cache/httpcache"
	"github.com/goliatone/go-output-cache/internal/catalogdb"
	ilog "github.com/goliatone/go-output-cache/internal/log"
	"github.com/goliatone/go-output-cache/pkg/di"
)

const (
	RouteProduct  = "Catalog.Product"
	RouteCategory = "Catalog.Category"
	RouteTag      = "Catalog.Tag"
	RouteTopic    = "Cms.Topic"

	SettingPageSize = "CatalogSettings.PageSize"
	defaultPageSize = 12
)

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

var (
	errNotFound = &apiError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "not found"}
	errBadID    = &apiError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: "invalid id"}
)

type apiHandler func(w http.ResponseWriter, r *http.Request) error

func (h apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}
	var ae *apiError
	if !errors.As(err, &ae) {
		if errors.Is(err, sql.ErrNoRows) {
			ae = errNotFound
		} else {
			ae = &apiError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: err.Error()}
		}
	}
	writeJSON(w, ae.Status, map[string]any{"error": ae})
}

// storefront renders catalog pages and applies admin writes through bun, so
// the query hook sees every change.
type storefront struct {
	db     *bun.DB
	store  *catalogdb.Store
	logger ilog.Logger
}

func newStorefront(db *bun.DB, logger ilog.Logger) *storefront {
	return &storefront{db: db, store: catalogdb.NewStore(db), logger: ilog.OrNop(logger)}
}

// newRouter mounts the cached storefront, the catalog admin writes, the
// cache admin API and, when reg is set, the metrics endpoint.
func newRouter(c *di.Container, s *storefront, reg *prometheus.Registry) http.Handler {
	mw := c.Middleware()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(c.Logger()))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.With(mw.Route(RouteProduct)).Method(http.MethodGet, "/products/{id}", apiHandler(s.product))
	r.With(mw.Route(RouteCategory)).Method(http.MethodGet, "/categories/{id}", apiHandler(s.category))
	r.With(mw.Route(RouteTag)).Method(http.MethodGet, "/tags/{id}", apiHandler(s.tag))
	r.With(mw.Route(RouteTopic)).Method(http.MethodGet, "/topics/{id}", apiHandler(s.topic))

	r.Route("/admin/catalog", func(r chi.Router) {
		r.Method(http.MethodPut, "/products/{id}", apiHandler(s.updateProduct))
		r.Method(http.MethodPost, "/product-categories", apiHandler(s.addProductCategory))
		r.Method(http.MethodDelete, "/product-tags/{id}", apiHandler(s.deleteProductTag))
		r.Method(http.MethodPut, "/settings/{name}", apiHandler(s.updateSetting))
	})
	r.Mount("/admin/cache", c.Admin().Routes())

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *storefront) product(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	p := &entity.Product{ID: id}
	if err := s.db.NewSelect().Model(p).WherePK().Scan(r.Context()); err != nil {
		return err
	}
	if !p.Published {
		return errNotFound
	}
	displaycontrol.Announce(r.Context(), p)
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
	return nil
}

func (s *storefront) category(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	c := &entity.Category{ID: id}
	if err := s.db.NewSelect().Model(c).WherePK().Scan(ctx); err != nil {
		return err
	}

	var products []*entity.Product
	err = s.db.NewSelect().Model(&products).
		Join("JOIN product_category_mappings AS pcm ON pcm.product_id = p.id").
		Where("pcm.category_id = ?", id).
		Where("p.published = ?", true).
		OrderExpr("p.id ASC").
		Limit(s.pageSize(r)).
		Scan(ctx)
	if err != nil {
		return err
	}

	displaycontrol.Announce(ctx, c)
	for _, p := range products {
		displaycontrol.Announce(ctx, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": c, "products": products})
	return nil
}

func (s *storefront) tag(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	t, err := s.store.ProductTagWithProducts(r.Context(), id)
	if err != nil {
		return err
	}
	if t == nil {
		return errNotFound
	}
	for _, p := range t.Products {
		displaycontrol.Announce(r.Context(), p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": t})
	return nil
}

func (s *storefront) topic(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	t := &entity.Topic{ID: id}
	if err := s.db.NewSelect().Model(t).WherePK().Scan(r.Context()); err != nil {
		return err
	}
	displaycontrol.Announce(r.Context(), t)
	writeJSON(w, http.StatusOK, map[string]any{"topic": t})
	return nil
}

// pageSize reads the catalog page size setting. Pages depend on it, so a
// setting observer purges the category route when it changes.
func (s *storefront) pageSize(r *http.Request) int {
	var st entity.Setting
	err := s.db.NewSelect().Model(&st).Where("name = ?", SettingPageSize).Limit(1).Scan(r.Context())
	if err != nil {
		return defaultPageSize
	}
	n, err := strconv.Atoi(st.Value)
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	return n
}

type productPatch struct {
	Name      *string `json:"name"`
	Published *bool   `json:"published"`
}

func (s *storefront) updateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var patch productPatch
	if err := decodeJSON(r, &patch); err != nil {
		return err
	}

	ctx := r.Context()
	p := &entity.Product{ID: id}
	if err := s.db.NewSelect().Model(p).WherePK().Scan(ctx); err != nil {
		return err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Published != nil {
		p.Published = *patch.Published
	}
	if _, err := s.db.NewUpdate().Model(p).WherePK().Exec(ctx); err != nil {
		return err
	}
	s.logger.Info("catalog.product.updated", "id", p.ID)
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
	return nil
}

type productCategoryRequest struct {
	ProductID  int64 `json:"product_id"`
	CategoryID int64 `json:"category_id"`
}

func (req productCategoryRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ProductID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.CategoryID, validation.Required, validation.Min(int64(1))),
	)
}

func (s *storefront) addProductCategory(w http.ResponseWriter, r *http.Request) error {
	var req productCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return &apiError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: err.Error()}
	}

	pc := &entity.ProductCategory{ProductID: req.ProductID, CategoryID: req.CategoryID}
	if _, err := s.db.NewInsert().Model(pc).Exec(r.Context()); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product_category": pc})
	return nil
}

// deleteProductTag removes the tag before its mappings so the hook can still
// resolve the tagged products.
func (s *storefront) deleteProductTag(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	res, err := s.db.NewDelete().Model(&entity.ProductTag{ID: id}).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotFound
	}
	_, err = s.db.NewDelete().
		Model((*entity.ProductTagMapping)(nil)).
		Where("product_tag_id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *storefront) updateSetting(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	var req settingRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx := r.Context()
	st := &entity.Setting{}
	err := s.db.NewSelect().Model(st).Where("name = ?", name).Limit(1).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		st = &entity.Setting{Name: name, Value: req.Value}
		_, err = s.db.NewInsert().Model(st).Exec(ctx)
	case err == nil:
		st.Value = req.Value
		_, err = s.db.NewUpdate().Model(st).WherePK().Exec(ctx)
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"setting": st})
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &apiError{Status: http.StatusBadRequest, Code: "INVALID_JSON", Message: err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accessLog(logger ilog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"cache", ww.Header().Get(httpcache.HeaderOutputCache),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
