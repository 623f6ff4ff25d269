package repository

import (
	"context"
	"errors"

	"github.com/carlamarinaap/go-shop/internal/domain"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateCode     = errors.New("product code already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductQuery describes a catalog listing. Sort is a price direction:
// 1 ascending, -1 descending, 0 natural order.
type ProductQuery struct {
	Category string
	InStock  bool
	Sort     int
	Page     int
	Limit    int
}

// ProductPage is the raw paginated result. PagingCounter is internal
// bookkeeping and must not leak into API envelopes.
type ProductPage struct {
	Docs          []domain.Product
	Total         int64
	Page          int
	TotalPages    int
	HasPrevPage   bool
	HasNextPage   bool
	PrevPage      int
	NextPage      int
	PagingCounter int
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByCode(ctx context.Context, code string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, p *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// DecrementStock subtracts amount from the product's stock in a single
	// guarded update; it never drives stock negative.
	DecrementStock(ctx context.Context, id string, amount int) (*domain.Product, error)
	PaginatedQuery(ctx context.Context, q ProductQuery) (*ProductPage, error)
}

// IndexCreator is implemented by repositories that maintain their own
// collection indexes.
type IndexCreator interface {
	CreateIndexes(ctx context.Context) error
}

type CartRepository interface {
	Create(ctx context.Context) (*domain.Cart, error)
	FindByID(ctx context.Context, id string) (*domain.Cart, error)
	AddOrIncrement(ctx context.Context, cartID, productID string) error
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) error
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error
	RemoveLine(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}

type UserRepository interface {
	FindByCartID(ctx context.Context, cartID string) (*domain.User, error)
}
