package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/carlamarinaap/go-shop/internal/checkout"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	Create(ctx context.Context) (*domain.Cart, error)
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	AddOrIncrement(ctx context.Context, cartID, productID string) error
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) error
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error
	RemoveLine(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}

type Purchaser interface {
	Purchase(ctx context.Context, cartID string) (*domain.Ticket, error)
}

type CartHandler struct {
	carts    CartService
	checkout Purchaser
	timeout  time.Duration
}

func NewCartHandler(carts CartService, purchaser Purchaser, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		checkout: purchaser,
		timeout:  timeout,
	}
}

type SetQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ReplaceLinesRequestDTO struct {
	Products []domain.CartLine `json:"products"`
}

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Create(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Get(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	productID := chi.URLParam(r, "product_id")

	if err := h.carts.AddOrIncrement(ctx, cartID, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cartID := chi.URLParam(r, "cart_id")
	productID := chi.URLParam(r, "product_id")

	if err := h.carts.SetQuantity(ctx, cartID, productID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *CartHandler) ReplaceLines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ReplaceLinesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.ReplaceLines(ctx, chi.URLParam(r, "cart_id"), req.Products); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	productID := chi.URLParam(r, "product_id")

	if err := h.carts.RemoveLine(ctx, cartID, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Clear(ctx, chi.URLParam(r, "cart_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Purchase settles the cart. A partially applied checkout still returns
// the ticket, with HTTP 207 signalling that some lines failed to commit.
func (h *CartHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ticket, err := h.checkout.Purchase(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		var partial *checkout.PartialCheckoutError
		if errors.As(err, &partial) && ticket != nil {
			respondJSON(w, http.StatusMultiStatus, map[string]interface{}{
				"status": "partial",
				"ticket": ticket,
				"failed": partial.Failed,
			})
			return
		}
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"ticket": ticket,
	})
}
