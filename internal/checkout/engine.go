// Package checkout reconciles a cart against live inventory and settles
// the purchase. A line is fulfilled only when its full quantity is in
// stock; anything else stays in the cart untouched. Every run emits a
// ticket, even for an amount of zero.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carlamarinaap/go-shop/internal/apperr"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/carlamarinaap/go-shop/internal/metrics"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Consumers define the store interfaces they need, not the Mongo/Postgres
// implementations.

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, amount int) (*domain.Product, error)
}

type CartStore interface {
	FindByID(ctx context.Context, id string) (*domain.Cart, error)
	RemoveLine(ctx context.Context, cartID, productID string) error
}

type UserLookup interface {
	FindByCartID(ctx context.Context, cartID string) (*domain.User, error)
}

type TicketWriter interface {
	Create(ctx context.Context, t *domain.Ticket) error
}

// Invalidator drops stale product cache entries after stock changes.
type Invalidator interface {
	Delete(ctx context.Context, productID string) error
}

// PartialCheckoutError reports a write phase that did not fully apply: the
// ticket was still created, but some fulfillable lines failed to commit.
type PartialCheckoutError struct {
	Applied []string
	Failed  []string
}

func (e *PartialCheckoutError) Error() string {
	return fmt.Sprintf("checkout partially applied: committed [%s], failed [%s]",
		strings.Join(e.Applied, ", "), strings.Join(e.Failed, ", "))
}

type Engine struct {
	products ProductStore
	carts    CartStore
	users    UserLookup
	tickets  TicketWriter
	cache    Invalidator
	metrics  *metrics.CheckoutMetrics

	mu        sync.Mutex
	cartLocks map[string]*sync.Mutex
}

// NewEngine builds a checkout engine. cache and m may be nil.
func NewEngine(products ProductStore, carts CartStore, users UserLookup, tickets TicketWriter, cache Invalidator, m *metrics.CheckoutMetrics) *Engine {
	return &Engine{
		products:  products,
		carts:     carts,
		users:     users,
		tickets:   tickets,
		cache:     cache,
		metrics:   m,
		cartLocks: make(map[string]*sync.Mutex),
	}
}

type classifiedLine struct {
	line  domain.CartLine
	price float64
}

// Purchase runs one checkout for the cart. Concurrent calls for the same
// cart serialize on a per-cart lock so two runs cannot both read
// pre-decrement stock and over-commit inventory.
func (e *Engine) Purchase(ctx context.Context, cartID string) (*domain.Ticket, error) {
	lock := e.cartLock(cartID)
	lock.Lock()
	defer lock.Unlock()

	cart, err := e.carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, apperr.NotFound("error during purchase", err)
		}
		return nil, e.fail(apperr.Persistence("error during purchase", err))
	}

	user, err := e.users.FindByCartID(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("error during purchase", err)
		}
		return nil, e.fail(apperr.Persistence("error during purchase", err))
	}

	// Classification pass. Every line is judged against the stock snapshot
	// read here, and the amount is settled before any write goes out.
	var fulfillable []classifiedLine
	var amount float64
	for _, line := range cart.Lines {
		product, err := e.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				log.Warn().Str("cart_id", cartID).Str("product_id", line.ProductID).
					Msg("cart references a missing product, leaving line unfulfilled")
				continue
			}
			return nil, e.fail(apperr.Persistence("error during purchase", err))
		}
		if line.Quantity <= product.Stock {
			fulfillable = append(fulfillable, classifiedLine{line: line, price: product.Price})
			amount += float64(line.Quantity) * product.Price
		}
	}

	ticket := &domain.Ticket{
		ID:               uuid.New(),
		PurchaseDatetime: time.Now().Format(domain.TicketTimeFormat),
		Purchaser:        user.Email,
		Amount:           amount,
	}

	// Write phase. Per-line failures do not stop the run and are not
	// rolled back; they are surfaced afterwards.
	var applied, failed []string
	for _, c := range fulfillable {
		productID := c.line.ProductID

		if _, err := e.products.DecrementStock(ctx, productID, c.line.Quantity); err != nil {
			log.Error().Err(err).Str("cart_id", cartID).Str("product_id", productID).
				Msg("stock decrement failed during checkout")
			failed = append(failed, productID)
			continue
		}
		e.invalidate(ctx, productID)

		if err := e.carts.RemoveLine(ctx, cartID, productID); err != nil {
			log.Error().Err(err).Str("cart_id", cartID).Str("product_id", productID).
				Msg("cart line removal failed during checkout")
			failed = append(failed, productID)
			continue
		}
		applied = append(applied, productID)
	}

	if err := e.tickets.Create(ctx, ticket); err != nil {
		return nil, e.fail(apperr.Persistence("error during purchase", err))
	}

	if e.metrics != nil {
		e.metrics.TicketAmount.Observe(ticket.Amount)
	}
	if len(failed) > 0 {
		e.count("partial")
		return ticket, &PartialCheckoutError{Applied: applied, Failed: failed}
	}
	e.count("completed")
	return ticket, nil
}

func (e *Engine) cartLock(cartID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.cartLocks[cartID]
	if !ok {
		lock = &sync.Mutex{}
		e.cartLocks[cartID] = lock
	}
	return lock
}

func (e *Engine) invalidate(ctx context.Context, productID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, productID); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("product cache invalidate failed")
	}
}

func (e *Engine) count(status string) {
	if e.metrics != nil {
		e.metrics.Purchases.WithLabelValues(status).Inc()
	}
}

func (e *Engine) fail(err error) error {
	e.count("failed")
	return err
}
