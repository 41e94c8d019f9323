package csapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"PimSync/internal/csapi/models"
	"PimSync/internal/syncerr"
	"PimSync/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc, pageSize int) CSAPI {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewAPI(Options{
		URL:      srv.URL,
		Email:    "admin@example.com",
		APIKey:   "secret",
		PageSize: pageSize,
	}, logging.Discard())
}

func TestVersion(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/version", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin@example.com", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"Version":"4.18.1"}`))
	}, 0)

	v, err := api.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.18.1", v)
	assert.True(t, api.TestConnection(context.Background()))
}

func TestCreateCategory(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/2.0/categories", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Посуда", body["category"])
		_, hasParent := body["parent_id"]
		assert.False(t, hasParent)

		_, _ = w.Write([]byte(`{"category_id":"15"}`))
	}, 0)

	id, err := api.CreateCategory(context.Background(), &models.Category{Category: "Посуда", Status: "A"})
	require.NoError(t, err)
	assert.Equal(t, 15, id)
}

func TestCreateCategoryWithoutID(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, 0)

	_, err := api.CreateCategory(context.Background(), &models.Category{Category: "A"})
	require.Error(t, err)
}

func TestCreateCategoryValidation(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	}, 0)

	_, err := api.CreateCategory(context.Background(), &models.Category{})
	assert.True(t, syncerr.IsValidation(err))
}

func TestHTMLErrorPage(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><h3>Message</h3><p class="x">Call to <b>undefined</b> function</p></body></html>`))
	}, 0)

	_, err := api.UpdateProduct(context.Background(), 3, &models.Product{Product: "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Call to undefined function")
	assert.Contains(t, err.Error(), "HTML response")
}

func TestClientErrorStatus(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}, 0)

	_, err := api.CreateProduct(context.Background(), &models.Product{Product: "A"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, syncerr.StatusCode(err))
	assert.False(t, syncerr.IsRetryable(err))
}

func TestCategoryExists(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/2.0/categories/5":
			_, _ = w.Write([]byte(`{"category_id":"5","category":"A"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 0)

	assert.True(t, api.CategoryExists(context.Background(), 5))
	assert.False(t, api.CategoryExists(context.Background(), 6))
}

func TestListCategoriesPagination(t *testing.T) {
	var pages []string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		assert.Equal(t, "2", r.URL.Query().Get("items_per_page"))

		n, _ := strconv.Atoi(page)
		var items []string
		for i := 0; i < 2 && (n-1)*2+i < 3; i++ {
			items = append(items, fmt.Sprintf(`{"category_id":%d,"category":"c%d"}`, (n-1)*2+i+1, i))
		}
		_, _ = fmt.Fprintf(w, `{"categories":[%s],"params":{"page":%d,"items_per_page":"2","total_items":"3"}}`,
			strings.Join(items, ","), n)
	}, 2)

	categories, err := api.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 3)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, 3, categories[2].CategoryID.Int())
}

