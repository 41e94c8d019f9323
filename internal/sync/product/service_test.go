package product

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	csmodels "PimSync/internal/csapi/models"
	"PimSync/internal/database/model/mapping"
	pimmodels "PimSync/internal/pimapi/models"
	"PimSync/internal/sync/models"
	"PimSync/internal/syncerr"
	"PimSync/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	created  map[string]int
	updated  map[int]*csmodels.Product
	payloads map[string]*csmodels.Product
	failOn   map[string]error
	onCreate func()
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:   500,
		created:  map[string]int{},
		updated:  map[int]*csmodels.Product{},
		payloads: map[string]*csmodels.Product{},
		failOn:   map[string]error{},
	}
}

func (f *fakeAPI) CreateProduct(ctx context.Context, p *csmodels.Product) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[p.Product]; err != nil {
		return 0, err
	}
	if f.onCreate != nil {
		f.onCreate()
	}
	f.nextID++
	f.created[p.Product]++
	f.payloads[p.Product] = p
	return f.nextID, nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, ID int, p *csmodels.Product) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[p.Product]; err != nil {
		return 0, err
	}
	f.updated[ID] = p
	return ID, nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*mapping.Mapping
}

func (s *fakeStore) Save(ctx context.Context, m *mapping.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, m)
	return nil
}

var scope = mapping.Scope{CatalogID: "21", CompanyID: 3, StorefrontID: 1}

var categories = map[string]int{"c1": 11, "c2": 12, "21": 99}

func product(id, header string, refs ...string) *pimmodels.Product {
	p := &pimmodels.Product{
		ID:      pimmodels.FlexString(id),
		Header:  header,
		Enabled: true,
	}
	for _, ref := range refs {
		p.CatalogAdditional = append(p.CatalogAdditional, pimmodels.FlexString(ref))
	}
	return p
}

func TestSyncCreatesAndUpdates(t *testing.T) {
	api := newFakeAPI()
	store := &fakeStore{}
	e := NewEngine(api, store, scope, categories, map[string]int{"p2": 42}, 4, logging.Discard())

	result, err := e.Sync(context.Background(), []*pimmodels.Product{
		product("p1", "First", "c1"),
		product("p2", "Second", "c2"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Contains(t, api.updated, 42)
	assert.Len(t, store.saved, 2)
	assert.Equal(t, 42, e.Map()["p2"])
	assert.NotZero(t, e.Map()["p1"])
}

func TestCategoryFallbackToCatalogID(t *testing.T) {
	api := newFakeAPI()
	e := NewEngine(api, &fakeStore{}, scope, categories, nil, 1, logging.Discard())

	p := product("p1", "Fallback")
	p.CatalogID = "21"

	result, err := e.Sync(context.Background(), []*pimmodels.Product{p})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, []int{99}, api.payloads["Fallback"].CategoryIDs)
	assert.Equal(t, 99, api.payloads["Fallback"].MainCategory)
}

func TestNoCategoriesIsValidationFailure(t *testing.T) {
	api := newFakeAPI()
	e := NewEngine(api, &fakeStore{}, scope, categories, nil, 2, logging.Discard())

	result, err := e.Sync(context.Background(), []*pimmodels.Product{product("p1", "Orphan", "unknown")})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, models.ActionValidationFailed, result.Details[0].Action)
	assert.Empty(t, api.created)
}

func TestDuplicateProductCreatedOnce(t *testing.T) {
	api := newFakeAPI()
	e := NewEngine(api, &fakeStore{}, scope, categories, nil, 8, logging.Discard())

	var batch []*pimmodels.Product
	for i := 0; i < 20; i++ {
		batch = append(batch, product("dup", "Dup", "c1"))
	}
	for i := 0; i < 20; i++ {
		batch = append(batch, product(fmt.Sprintf("p%d", i), fmt.Sprintf("P%d", i), "c1"))
	}

	result, err := e.Sync(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, api.created["Dup"])
	assert.Equal(t, 21, result.Created)
	assert.Equal(t, 21, result.Total)
}

func TestDetailsKeepInputOrder(t *testing.T) {
	api := newFakeAPI()
	e := NewEngine(api, &fakeStore{}, scope, categories, nil, 8, logging.Discard())

	var batch []*pimmodels.Product
	for i := 0; i < 50; i++ {
		batch = append(batch, product(fmt.Sprintf("p%02d", i), fmt.Sprintf("P%02d", i), "c1"))
	}

	result, err := e.Sync(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, result.Details, 50)
	for i, d := range result.Details {
		assert.Equal(t, fmt.Sprintf("p%02d", i), d.PimID)
	}
}

func TestFailureDoesNotStopBatch(t *testing.T) {
	api := newFakeAPI()
	api.failOn["Bad"] = &syncerr.HttpError{Method: "POST", URL: "products", StatusCode: 500, Body: "oops"}
	e := NewEngine(api, &fakeStore{}, scope, categories, map[string]int{"p3": 7}, 2, logging.Discard())

	bad := product("p3", "Bad", "c1")
	result, err := e.Sync(context.Background(), []*pimmodels.Product{
		product("p1", "Good", "c1"),
		bad,
		product("p2", "Other", "c2"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, models.ActionUpdateFailed, result.Details[1].Action)
}

func TestAuthErrorAbortsBatch(t *testing.T) {
	api := newFakeAPI()
	api.failOn["Locked"] = &syncerr.AuthError{System: "CS-Cart", Message: "HTTP 401"}
	e := NewEngine(api, &fakeStore{}, scope, categories, nil, 1, logging.Discard())

	_, err := e.Sync(context.Background(), []*pimmodels.Product{product("p1", "Locked", "c1")})
	require.Error(t, err)
	assert.True(t, syncerr.IsAuth(err))
}

func TestCancelAfterLastProductIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := newFakeAPI()
	api.onCreate = cancel
	e := NewEngine(api, &fakeStore{}, scope, categories, nil, 1, logging.Discard())

	result, err := e.Sync(ctx, []*pimmodels.Product{product("p1", "Last", "c1")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, result.Total)
}

func TestResolveCategoriesDeduplicates(t *testing.T) {
	e := NewEngine(newFakeAPI(), &fakeStore{}, scope, categories, nil, 1, logging.Discard())

	ids := e.ResolveCategories(product("p", "P", "c2", "c1", "c2", "", "missing", "c1"))
	assert.Equal(t, []int{12, 11}, ids)
}

func TestBuildPayload(t *testing.T) {
	p := product("p", "Кружка", "c1")
	p.Articul = "ART-1"
	p.Price = 199.9
	p.Weight = 0.3

	payload, err := BuildPayload(p, []int{11, 12}, scope)
	require.NoError(t, err)
	assert.Equal(t, "ART-1", payload.ProductCode)
	assert.Equal(t, "A", payload.Status)
	assert.Equal(t, 199.9, payload.Price)
	assert.Equal(t, 11, payload.MainCategory)
	assert.Equal(t, 3, payload.CompanyID)

	p.BarCode = "4600000000001"
	payload, err = BuildPayload(p, []int{11}, scope)
	require.NoError(t, err)
	assert.Equal(t, "4600000000001", payload.ProductCode)

	_, err = BuildPayload(&pimmodels.Product{ID: "x"}, []int{11}, scope)
	assert.True(t, syncerr.IsValidation(err))
}

func TestClampWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, ClampWorkers(0))
	assert.Equal(t, 1, ClampWorkers(1))
	assert.Equal(t, MaxWorkers, ClampWorkers(64))
}
