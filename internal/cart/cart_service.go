// Package cart exposes line-level cart operations. Stock is deliberately
// not checked here: quantities are reconciled against inventory only at
// checkout.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/carlamarinaap/go-shop/internal/apperr"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo repository.CartRepository
}

func NewService(repo repository.CartRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context) (*domain.Cart, error) {
	cart, err := s.repo.Create(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to create cart")
		return nil, apperr.Persistence("error creating cart", err)
	}
	return cart, nil
}

func (s *Service) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, s.wrap("error finding cart", err)
	}
	return cart, nil
}

// AddOrIncrement appends a quantity-1 line for the product, or bumps the
// existing line by one.
func (s *Service) AddOrIncrement(ctx context.Context, cartID, productID string) error {
	if err := s.repo.AddOrIncrement(ctx, cartID, productID); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Str("product_id", productID).Msg("failed to add product to cart")
		return s.wrap("error adding product to cart", err)
	}
	return nil
}

func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity < 1 {
		return apperr.Validation(fmt.Sprintf("quantity must be a positive integer, got %d", quantity), nil)
	}

	if err := s.repo.SetQuantity(ctx, cartID, productID, quantity); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Str("product_id", productID).Msg("failed to set line quantity")
		return s.wrap("error updating product quantity in cart", err)
	}
	return nil
}

func (s *Service) ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error {
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return apperr.Validation(fmt.Sprintf("quantity must be a positive integer, got %d", line.Quantity), nil)
		}
		if _, dup := seen[line.ProductID]; dup {
			return apperr.Validation(fmt.Sprintf("duplicate line for product %s", line.ProductID), nil)
		}
		seen[line.ProductID] = struct{}{}
	}

	if err := s.repo.ReplaceLines(ctx, cartID, lines); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Msg("failed to replace cart lines")
		return s.wrap("error updating cart", err)
	}
	return nil
}

func (s *Service) RemoveLine(ctx context.Context, cartID, productID string) error {
	if err := s.repo.RemoveLine(ctx, cartID, productID); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Str("product_id", productID).Msg("failed to remove product from cart")
		return s.wrap("error removing product from cart", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	if err := s.repo.Clear(ctx, cartID); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Msg("failed to clear cart")
		return s.wrap("error clearing cart", err)
	}
	return nil
}

func (s *Service) wrap(msg string, err error) error {
	if errors.Is(err, repository.ErrCartNotFound) {
		return apperr.NotFound(msg, err)
	}
	return apperr.Persistence(msg, err)
}
