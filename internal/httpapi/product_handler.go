package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/carlamarinaap/go-shop/internal/catalog"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CatalogService is what the product endpoints need from the catalog.
type CatalogService interface {
	List(ctx context.Context, params catalog.ListParams) (*catalog.PagedProducts, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, p *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewProductHandler(catalogService CatalogService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalogService,
		timeout: timeout,
	}
}

type ProductRequestDTO struct {
	Code        string   `json:"code"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	Thumbnails  []string `json:"thumbnails"`
	Status      *bool    `json:"status"`
}

func (d *ProductRequestDTO) toDomain() *domain.Product {
	// Status defaults to active, thumbnails to empty.
	status := true
	if d.Status != nil {
		status = *d.Status
	}
	thumbnails := d.Thumbnails
	if thumbnails == nil {
		thumbnails = []string{}
	}
	return &domain.Product{
		Code:        d.Code,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
		Category:    d.Category,
		Thumbnails:  thumbnails,
		Status:      status,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	params := catalog.ListParams{
		Limit:    catalog.DefaultLimit,
		Page:     catalog.DefaultPage,
		Sort:     r.URL.Query().Get("sort"),
		Category: r.URL.Query().Get("category"),
		InStock:  r.URL.Query().Get("stock") == "true",
	}

	// Absent values default; present values must be positive integers.
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "validation", "limit must be a positive integer")
			return
		}
		params.Limit = limit
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			respondError(w, http.StatusBadRequest, "validation", "page must be a positive integer")
			return
		}
		params.Page = page
	}

	result, err := h.catalog.List(ctx, params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetByID(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	created, err := h.catalog.Create(ctx, req.toDomain())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	updated, err := h.catalog.Update(ctx, chi.URLParam(r, "product_id"), req.toDomain())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.Delete(ctx, chi.URLParam(r, "product_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
