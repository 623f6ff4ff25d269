// Package catalog implements product listing and administration. Listing
// translates filter/sort/pagination parameters into a repository query and
// shapes the result into the navigation envelope API consumers expect.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/carlamarinaap/go-shop/internal/apperr"
	"github.com/carlamarinaap/go-shop/internal/cache"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLimit = 10
	DefaultPage  = 1

	SortAsc  = "asc"
	SortDesc = "desc"
)

type ListParams struct {
	Limit    int
	Page     int
	Sort     string
	Category string
	InStock  bool
}

// PagedProducts is the listing envelope. Pointer fields render as null at
// the page edges.
type PagedProducts struct {
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

type Service struct {
	products repository.ProductRepository
	cache    cache.ProductCache
	baseURL  string
	sfg      singleflight.Group // Prevents cache stampede on product reads
}

// NewService builds a catalog service. baseURL is the externally visible
// server root used for navigation links (no ambient process state).
func NewService(products repository.ProductRepository, productCache cache.ProductCache, baseURL string) *Service {
	return &Service{
		products: products,
		cache:    productCache,
		baseURL:  baseURL,
	}
}

func (s *Service) List(ctx context.Context, params ListParams) (*PagedProducts, error) {
	if params.Limit < 1 {
		return nil, apperr.Validation(fmt.Sprintf("limit must be a positive integer, got %d", params.Limit), nil)
	}
	if params.Page < 1 {
		return nil, apperr.Validation(fmt.Sprintf("page must be a positive integer, got %d", params.Page), nil)
	}

	query := repository.ProductQuery{
		Category: params.Category,
		InStock:  params.InStock,
		Page:     params.Page,
		Limit:    params.Limit,
	}
	switch params.Sort {
	case SortAsc:
		query.Sort = 1
	case SortDesc:
		query.Sort = -1
	}

	page, err := s.products.PaginatedQuery(ctx, query)
	if err != nil {
		return nil, apperr.Persistence("error listing products", err)
	}

	result := &PagedProducts{
		Status:      "success",
		Payload:     page.Docs,
		TotalPages:  page.TotalPages,
		Page:        page.Page,
		HasPrevPage: page.HasPrevPage,
		HasNextPage: page.HasNextPage,
	}
	if page.HasPrevPage {
		result.PrevPage = &page.PrevPage
		result.PrevLink = s.pageLink(params, page.PrevPage)
	}
	if page.HasNextPage {
		result.NextPage = &page.NextPage
		result.NextLink = s.pageLink(params, page.NextPage)
	}
	return result, nil
}

// pageLink rebuilds the listing URL for the given page, carrying every
// active parameter so the link navigates the same result set.
func (s *Service) pageLink(params ListParams, page int) *string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	if params.Limit != DefaultLimit {
		values.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Sort == SortAsc || params.Sort == SortDesc {
		values.Set("sort", params.Sort)
	}
	if params.Category != "" {
		values.Set("category", params.Category)
	}
	if params.InStock {
		values.Set("stock", "true")
	}

	link := fmt.Sprintf("%s/api/products?%s", s.baseURL, values.Encode())
	return &link
}

// GetByID is a read-through: cache first, repository on miss, with
// singleflight collapsing concurrent misses for the same product.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(id, func() (interface{}, error) {
		product, err := s.cache.Get(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("product_id", id).Msg("product cache get failed")
		}

		product, err = s.products.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, apperr.NotFound("error finding product", err)
			}
			return nil, apperr.Persistence("error finding product", err)
		}

		go func() {
			if err := s.cache.Set(context.Background(), product); err != nil {
				log.Warn().Err(err).Str("product_id", id).Msg("product cache set failed")
			}
		}()

		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Product, error) {
	product, err := s.products.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.NotFound("error finding product by code", err)
		}
		return nil, apperr.Persistence("error finding product by code", err)
	}
	return product, nil
}

func (s *Service) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	// Pre-check gives a clean message; the unique index still backstops races.
	if _, err := s.products.FindByCode(ctx, p.Code); err == nil {
		return nil, apperr.Validation(fmt.Sprintf("a product with code %s already exists", p.Code), repository.ErrDuplicateCode)
	} else if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, apperr.Persistence("error creating product", err)
	}

	created, err := s.products.Create(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, apperr.Validation(fmt.Sprintf("a product with code %s already exists", p.Code), err)
		}
		return nil, apperr.Persistence("error creating product", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, p *domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	updated, err := s.products.Update(ctx, id, p)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, apperr.NotFound("error updating product", err)
		case errors.Is(err, repository.ErrDuplicateCode):
			return nil, apperr.Validation(fmt.Sprintf("a product with code %s already exists", p.Code), err)
		default:
			return nil, apperr.Persistence("error updating product", err)
		}
	}

	s.invalidate(ctx, id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperr.NotFound("error deleting product", err)
		}
		return apperr.Persistence("error deleting product", err)
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("product_id", id).Msg("product cache invalidate failed")
	}
}

func validateProduct(p *domain.Product) error {
	switch {
	case p == nil:
		return apperr.Validation("product is required", nil)
	case p.Code == "":
		return apperr.Validation("product code is required", nil)
	case p.Title == "":
		return apperr.Validation("product title is required", nil)
	case p.Category == "":
		return apperr.Validation("product category is required", nil)
	case p.Price < 0:
		return apperr.Validation("product price must not be negative", nil)
	case p.Stock < 0:
		return apperr.Validation("product stock must not be negative", nil)
	}
	return nil
}
