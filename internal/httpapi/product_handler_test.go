package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CesValde/MongoCart/internal/domain"
	"github.com/CesValde/MongoCart/internal/repository"
	"github.com/CesValde/MongoCart/internal/service"
)

type apiFixture struct {
	router   chi.Router
	products *repository.MemoryProductRepository
	carts    *repository.MemoryCartRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	products := repository.NewMemoryProductRepository()
	carts := repository.NewMemoryCartRepository()
	catalog := service.NewCatalogService(products, nil)
	cartSvc := service.NewCartService(carts, products, nil, nil)

	ph := NewProductHandler(catalog, 5*time.Second)
	ch := NewCartHandler(cartSvc, 5*time.Second)

	r := chi.NewRouter()
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", ph.List)
		r.Post("/", ph.Create)
		r.Get("/{pid}", ph.Get)
		r.Put("/{pid}", ph.Replace)
		r.Delete("/{pid}", ph.Delete)
	})
	r.Route("/api/carts", func(r chi.Router) {
		r.Get("/", ch.List)
		r.Post("/", ch.Create)
		r.Get("/{cid}", ch.Get)
		r.Put("/{cid}", ch.Replace)
		r.Delete("/{cid}", ch.Clear)
		r.Post("/{cid}/product/{pid}", ch.AddProduct)
		r.Put("/{cid}/products/{pid}", ch.SetQuantity)
		r.Delete("/{cid}/products/{pid}", ch.RemoveProduct)
	})

	return &apiFixture{router: r, products: products, carts: carts}
}

func (f *apiFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

const productBody = `{
	"title": "keyboard",
	"description": "mechanical keyboard",
	"code": "KB-1",
	"price": 49.90,
	"status": true,
	"stock": 5,
	"category": "peripherals",
	"thumbnails": ["/img/kb.jpg"]
}`

func (f *apiFixture) createProduct(t *testing.T) domain.Product {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/products", productBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Payload []domain.Product `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Payload, 1)
	return resp.Payload[0]
}

func TestProductAPI_CreateSingleObject(t *testing.T) {
	f := newAPIFixture(t)

	p := f.createProduct(t)
	assert.False(t, p.ID.IsZero())
	assert.Equal(t, "keyboard", p.Title)
}

func TestProductAPI_CreateArray(t *testing.T) {
	f := newAPIFixture(t)

	body := "[" + productBody + "," + strings.Replace(productBody, "KB-1", "KB-2", 1) + "]"
	rec := f.do(t, http.MethodPost, "/api/products", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Status  string           `json:"status"`
		Payload []domain.Product `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Payload, 2)
}

func TestProductAPI_CreateRejectsIncompletePayload(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/products", `{"title": "only a title"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.JSONEq(t, `"error"`, string(envelope["status"]))
	assert.Contains(t, string(envelope["error"]), "missing values")
}

func TestProductAPI_ListPaginationLinks(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 12; i++ {
		body := strings.Replace(productBody, "KB-1", "KB-"+string(rune('a'+i)), 1)
		rec := f.do(t, http.MethodPost, "/api/products", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/products?limit=5&page=2&sort=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Payload, 5)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasPrevPage)
	assert.True(t, resp.HasNextPage)
	require.NotNil(t, resp.PrevLink)
	require.NotNil(t, resp.NextLink)
	assert.Contains(t, *resp.PrevLink, "page=1")
	assert.Contains(t, *resp.NextLink, "page=3")
	assert.Contains(t, *resp.NextLink, "limit=5")
	assert.Contains(t, *resp.NextLink, "sort=asc")
}

func TestProductAPI_GetStatusCodes(t *testing.T) {
	f := newAPIFixture(t)
	p := f.createProduct(t)

	rec := f.do(t, http.MethodGet, "/api/products/"+p.ID.Hex(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/not-a-hex-id", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/"+primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductAPI_ReplaceIgnoresBodyID(t *testing.T) {
	f := newAPIFixture(t)
	p := f.createProduct(t)

	body := strings.Replace(productBody, `"title": "keyboard"`, `"title": "keyboard pro"`, 1)
	rec := f.do(t, http.MethodPut, "/api/products/"+p.ID.Hex(), body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Payload domain.Product `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, p.ID, resp.Payload.ID)
	assert.Equal(t, "keyboard pro", resp.Payload.Title)
}

func TestProductAPI_DeleteReturnsRemoved(t *testing.T) {
	f := newAPIFixture(t)
	p := f.createProduct(t)

	rec := f.do(t, http.MethodDelete, "/api/products/"+p.ID.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/"+p.ID.Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
