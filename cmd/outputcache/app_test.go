package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-output-cache/httpcache"
	"github.com/goliatone/go-output-cache/internal/config"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

func newTestApp(t *testing.T) (*app, *prometheus.Registry) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	t.Setenv("DB_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	t.Setenv("CACHE_PROVIDER", "memory")

	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	a, err := newApp(context.Background(), cfg, ilog.Nop{}, reg, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cacheStatus(rec *httptest.ResponseRecorder) string {
	return rec.Header().Get(httpcache.HeaderOutputCache)
}

func TestServe_ProductPageIsCached(t *testing.T) {
	a, _ := newTestApp(t)

	first := do(t, a.handler, http.MethodGet, "/products/1", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(first))
	assert.Contains(t, first.Body.String(), "Trail Shoe")

	second := do(t, a.handler, http.MethodGet, "/products/1", "")
	assert.Equal(t, httpcache.StatusHit, cacheStatus(second))
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestServe_ProductUpdateInvalidates(t *testing.T) {
	a, _ := newTestApp(t)

	do(t, a.handler, http.MethodGet, "/products/1", "")
	do(t, a.handler, http.MethodGet, "/products/2", "")

	rec := do(t, a.handler, http.MethodPut, "/admin/catalog/products/1", `{"name":"Trail Shoe II"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	again := do(t, a.handler, http.MethodGet, "/products/1", "")
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(again))
	assert.Contains(t, again.Body.String(), "Trail Shoe II")

	other := do(t, a.handler, http.MethodGet, "/products/2", "")
	assert.Equal(t, httpcache.StatusHit, cacheStatus(other))
}

func TestServe_CategoryPageFollowsProducts(t *testing.T) {
	a, _ := newTestApp(t)

	do(t, a.handler, http.MethodGet, "/categories/10", "")
	assert.Equal(t, httpcache.StatusHit, cacheStatus(do(t, a.handler, http.MethodGet, "/categories/10", "")))

	rec := do(t, a.handler, http.MethodPut, "/admin/catalog/products/2", `{"published":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	page := do(t, a.handler, http.MethodGet, "/categories/10", "")
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(page))
	assert.NotContains(t, page.Body.String(), "Road Shoe")
}

func TestServe_AddProductCategory(t *testing.T) {
	a, _ := newTestApp(t)

	do(t, a.handler, http.MethodGet, "/categories/11", "")
	do(t, a.handler, http.MethodGet, "/products/4", "")

	rec := do(t, a.handler, http.MethodPost, "/admin/catalog/product-categories", `{"product_id":4,"category_id":11}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, httpcache.StatusMiss, cacheStatus(do(t, a.handler, http.MethodGet, "/categories/11", "")))
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(do(t, a.handler, http.MethodGet, "/products/4", "")))
}

func TestServe_AddProductCategoryValidation(t *testing.T) {
	a, _ := newTestApp(t)

	rec := do(t, a.handler, http.MethodPost, "/admin/catalog/product-categories", `{"product_id":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, a.handler, http.MethodPost, "/admin/catalog/product-categories", `{"product":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")
}

func TestServe_DeleteProductTagPurgesTaggedProducts(t *testing.T) {
	a, _ := newTestApp(t)

	for _, path := range []string{"/tags/30", "/products/1", "/products/2", "/products/3"} {
		require.Equal(t, http.StatusOK, do(t, a.handler, http.MethodGet, path, "").Code, path)
	}

	rec := do(t, a.handler, http.MethodDelete, "/admin/catalog/product-tags/30", "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, httpcache.StatusMiss, cacheStatus(do(t, a.handler, http.MethodGet, "/products/1", "")))
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(do(t, a.handler, http.MethodGet, "/products/2", "")))
	assert.Equal(t, httpcache.StatusHit, cacheStatus(do(t, a.handler, http.MethodGet, "/products/3", "")))
	assert.Equal(t, http.StatusNotFound, do(t, a.handler, http.MethodGet, "/tags/30", "").Code)

	assert.Equal(t, http.StatusNotFound, do(t, a.handler, http.MethodDelete, "/admin/catalog/product-tags/30", "").Code)
}

func TestServe_PageSizeSettingPurgesCategoryRoute(t *testing.T) {
	a, _ := newTestApp(t)

	do(t, a.handler, http.MethodGet, "/categories/10", "")
	do(t, a.handler, http.MethodGet, "/products/1", "")

	rec := do(t, a.handler, http.MethodPut, "/admin/catalog/settings/CatalogSettings.PageSize", `{"value":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := do(t, a.handler, http.MethodGet, "/categories/10", "")
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(page))

	var body struct {
		Products []json.RawMessage `json:"products"`
	}
	require.NoError(t, json.Unmarshal(page.Body.Bytes(), &body))
	assert.Len(t, body.Products, 1)

	assert.Equal(t, httpcache.StatusHit, cacheStatus(do(t, a.handler, http.MethodGet, "/products/1", "")))
}

func TestServe_NotFoundIsNotCached(t *testing.T) {
	a, _ := newTestApp(t)

	assert.Equal(t, http.StatusNotFound, do(t, a.handler, http.MethodGet, "/products/999", "").Code)
	rec := do(t, a.handler, http.MethodGet, "/products/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httpcache.StatusMiss, cacheStatus(rec))

	assert.Equal(t, http.StatusBadRequest, do(t, a.handler, http.MethodGet, "/topics/abc", "").Code)
}

func TestServe_CacheAdminAndMetrics(t *testing.T) {
	a, _ := newTestApp(t)

	do(t, a.handler, http.MethodGet, "/topics/70", "")
	do(t, a.handler, http.MethodGet, "/products/1", "")
	do(t, a.handler, http.MethodGet, "/products/1", "")

	rec := do(t, a.handler, http.MethodGet, "/admin/cache/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"count":2}}`, rec.Body.String())

	rec = do(t, a.handler, http.MethodPost, "/admin/cache/invalidate", `{"tags":["t70"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"removed":{"tag":1}}}`, rec.Body.String())

	rec = do(t, a.handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_")

	assert.Equal(t, http.StatusOK, do(t, a.handler, http.MethodGet, "/health", "").Code)
}

func TestPurge_RemoteServer(t *testing.T) {
	a, _ := newTestApp(t)
	srv := httptest.NewServer(a.handler)
	t.Cleanup(srv.Close)

	do(t, a.handler, http.MethodGet, "/products/1", "")
	do(t, a.handler, http.MethodGet, "/products/2", "")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"purge", "--server", srv.URL, "--tag", "p1"})
	require.NoError(t, cmd.Execute())
	assert.Regexp(t, `tag\s+1\n`, out.String())

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"purge", "--server", srv.URL, "--all"})
	require.NoError(t, cmd.Execute())
	assert.Regexp(t, `all\s+1\n`, out.String())
}

func TestPurge_RequiresSelector(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"purge"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to purge")
}

func TestPurge_LocalProvider(t *testing.T) {
	t.Setenv("CACHE_PROVIDER", "memory")
	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	removed, err := purgeLocal(context.Background(), cfg, &purgeOptions{all: true}, ilog.Nop{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"all": 0}, removed)

	opts := &purgeOptions{}
	opts.Tags = []string{"p1"}
	removed, err = purgeLocal(context.Background(), cfg, opts, ilog.Nop{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tag": 0}, removed)
}

func TestDecodeRemoved(t *testing.T) {
	got, err := decodeRemoved(json.RawMessage(`{"tag":2,"route":1}`), false)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tag": 2, "route": 1}, got)

	got, err = decodeRemoved(json.RawMessage(`3`), true)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"all": 3}, got)

	_, err = decodeRemoved(json.RawMessage(`"x"`), true)
	assert.Error(t, err)
}
