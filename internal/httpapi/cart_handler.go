package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CesValde/MongoCart/internal/domain"
	"github.com/CesValde/MongoCart/internal/service"
)

type CartHandler struct {
	carts   *service.CartService
	timeout time.Duration
}

func NewCartHandler(carts *service.CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout}
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	carts, err := h.carts.List(ctx)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, carts)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetResolved(ctx, chi.URLParam(r, "cid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, cart)
}

// Create makes a new cart. No body, an empty body, or a products field that
// is not an array all mean "start empty"; a supplied array is stored as
// given, without the merge the add endpoint runs.
func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var items []domain.LineItem
	if len(body) > 0 {
		var payload struct {
			Products json.RawMessage `json:"products"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		// Only an actual array runs through item validation; any other shape
		// for the products field means "start empty". An array of malformed
		// entries is still a malformed request, not an empty cart.
		if trimmed := bytes.TrimSpace(payload.Products); len(trimmed) > 0 && trimmed[0] == '[' {
			var inputs []service.LineItemInput
			if err := json.Unmarshal(trimmed, &inputs); err != nil {
				respondError(w, http.StatusBadRequest, "products must be an array of items")
				return
			}
			items, err = service.ParseLineItems(inputs)
			if err != nil {
				respondServiceError(w, err)
				return
			}
		}
	}

	cart, err := h.carts.Create(ctx, items)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, cart)
}

func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.AddProduct(ctx, chi.URLParam(r, "cid"), chi.URLParam(r, "pid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveProduct(ctx, chi.URLParam(r, "cid"), chi.URLParam(r, "pid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, cart)
}

// Replace swaps the whole line-item sequence for the array in the body.
// Every entry must carry a product reference and a positive quantity; the
// sequence itself is stored verbatim, duplicates included.
func (h *CartHandler) Replace(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var inputs []service.LineItemInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		respondError(w, http.StatusBadRequest, "body must be an array of items")
		return
	}

	items, err := service.ParseLineItems(inputs)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	cart, err := h.carts.ReplaceItems(ctx, chi.URLParam(r, "cid"), items)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, cart)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var payload struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "quantity must be a number")
		return
	}
	if payload.Quantity == nil {
		respondError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	cart, err := h.carts.SetQuantity(ctx, chi.URLParam(r, "cid"), chi.URLParam(r, "pid"), *payload.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, cart)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Clear(ctx, chi.URLParam(r, "cid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, cart)
}
