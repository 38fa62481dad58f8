package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CesValde/MongoCart/internal/domain"
	"github.com/CesValde/MongoCart/internal/service"
	"github.com/CesValde/MongoCart/internal/web"
)

type ProductHandler struct {
	catalog *service.CatalogService
	timeout time.Duration
}

func NewProductHandler(catalog *service.CatalogService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{catalog: catalog, timeout: timeout}
}

// listingResponse is the flattened pagination envelope of the listing
// endpoint. Prev/next fields are null at the edges.
type listingResponse struct {
	Status      string           `json:"status"`
	Payload     []domain.Product `json:"payload"`
	TotalPages  int              `json:"totalPages"`
	PrevPage    *int             `json:"prevPage"`
	NextPage    *int             `json:"nextPage"`
	Page        int              `json:"page"`
	HasPrevPage bool             `json:"hasPrevPage"`
	HasNextPage bool             `json:"hasNextPage"`
	PrevLink    *string          `json:"prevLink"`
	NextLink    *string          `json:"nextLink"`
}

// ParseListQuery reads the listing parameters off a query string.
// Unparseable numbers fall back to the defaults.
func ParseListQuery(r *http.Request) service.ListQuery {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))

	return service.ListQuery{
		Limit:    limit,
		Page:     page,
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Query:    q.Get("query"),
		Sort:     q.Get("sort"),
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.catalog.List(ctx, ParseListQuery(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := listingResponse{
		Status:      "success",
		Payload:     page.Payload,
		TotalPages:  page.TotalPages,
		PrevPage:    page.PrevPage,
		NextPage:    page.NextPage,
		Page:        page.Page,
		HasPrevPage: page.HasPrevPage,
		HasNextPage: page.HasNextPage,
	}
	if page.PrevPage != nil {
		link := web.PageLink(r, *page.PrevPage)
		resp.PrevLink = &link
	}
	if page.NextPage != nil {
		link := web.PageLink(r, *page.NextPage)
		resp.NextLink = &link
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.Get(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, product)
}

// Create accepts either a single product object or an array of them; all of
// the batch is validated before anything is inserted.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var inputs []service.ProductInput
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		var single service.ProductInput
		if err := json.Unmarshal(trimmed, &single); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		inputs = []service.ProductInput{single}
	}

	inserted, err := h.catalog.Create(ctx, inputs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, inserted)
}

func (h *ProductHandler) Replace(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var input service.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := h.catalog.Replace(ctx, chi.URLParam(r, "pid"), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	deleted, err := h.catalog.Delete(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, deleted)
}
