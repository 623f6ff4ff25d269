package cache

import (
	"context"
	"errors"

	"github.com/carlamarinaap/go-shop/internal/domain"
)

// ProductCache sits in front of the product repository for reads.
// Consumers define this interface, not the Redis implementation.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

var ErrCacheMiss = errors.New("cache miss")
