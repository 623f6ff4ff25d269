package checkout

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/carlamarinaap/go-shop/internal/apperr"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProductStore struct {
	m            sync.Mutex
	products     map[string]*domain.Product
	decrementErr map[string]error // productID -> forced failure
}

func newMockProductStore(products ...*domain.Product) *mockProductStore {
	s := &mockProductStore{
		products:     map[string]*domain.Product{},
		decrementErr: map[string]error{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *mockProductStore) FindByID(_ context.Context, id string) (*domain.Product, error) {
	s.m.Lock()
	defer s.m.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *mockProductStore) DecrementStock(_ context.Context, id string, amount int) (*domain.Product, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if err := s.decrementErr[id]; err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.Stock < amount {
		return nil, repository.ErrInsufficientStock
	}
	p.Stock -= amount
	cp := *p
	return &cp, nil
}

func (s *mockProductStore) stock(id string) int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.products[id].Stock
}

type mockCartStore struct {
	m     sync.Mutex
	carts map[string]*domain.Cart
}

func newMockCartStore(carts ...*domain.Cart) *mockCartStore {
	s := &mockCartStore{carts: map[string]*domain.Cart{}}
	for _, c := range carts {
		s.carts[c.ID] = c
	}
	return s
}

func (s *mockCartStore) FindByID(_ context.Context, id string) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *c
	cp.Lines = append([]domain.CartLine(nil), c.Lines...)
	return &cp, nil
}

func (s *mockCartStore) RemoveLine(_ context.Context, cartID, productID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	c, ok := s.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i, line := range c.Lines {
		if line.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *mockCartStore) lines(cartID string) []domain.CartLine {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]domain.CartLine(nil), s.carts[cartID].Lines...)
}

type mockUserLookup struct {
	user *domain.User
}

func (s *mockUserLookup) FindByCartID(_ context.Context, cartID string) (*domain.User, error) {
	if s.user == nil || s.user.CartID != cartID {
		return nil, repository.ErrUserNotFound
	}
	return s.user, nil
}

type mockTicketWriter struct {
	m       sync.Mutex
	tickets []*domain.Ticket
	err     error
}

func (s *mockTicketWriter) Create(_ context.Context, t *domain.Ticket) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tickets = append(s.tickets, t)
	return nil
}

type mockInvalidator struct {
	m       sync.Mutex
	deleted []string
}

func (s *mockInvalidator) Delete(_ context.Context, productID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.deleted = append(s.deleted, productID)
	return nil
}

func testUser(cartID string) *domain.User {
	return &domain.User{ID: "u1", Email: "carla@example.com", CartID: cartID}
}

func TestPurchase_AllLinesFulfillable(t *testing.T) {
	products := newMockProductStore(
		&domain.Product{ID: "p1", Price: 3, Stock: 10},
		&domain.Product{ID: "p2", Price: 7, Stock: 5},
	)
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 5},
	}})
	tickets := &mockTicketWriter{}
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, tickets, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)

	assert.InDelta(t, 2*3+5*7, ticket.Amount, 0.001)
	assert.Equal(t, "carla@example.com", ticket.Purchaser)
	assert.Empty(t, carts.lines("c1"))
	assert.Equal(t, 8, products.stock("p1"))
	assert.Equal(t, 0, products.stock("p2"))
	require.Len(t, tickets.tickets, 1)
}

func TestPurchase_PartialAvailability(t *testing.T) {
	// The worked example: P1 qty 2 of stock 10 at price 3 fulfills, P2
	// qty 5 of stock 1 does not.
	products := newMockProductStore(
		&domain.Product{ID: "p1", Price: 3, Stock: 10},
		&domain.Product{ID: "p2", Price: 7, Stock: 1},
	)
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 5},
	}})
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, &mockTicketWriter{}, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)

	assert.InDelta(t, 6, ticket.Amount, 0.001)
	assert.Equal(t, 8, products.stock("p1"))
	assert.Equal(t, 1, products.stock("p2"))

	remaining := carts.lines("c1")
	require.Len(t, remaining, 1)
	assert.Equal(t, "p2", remaining[0].ProductID)
	assert.Equal(t, 5, remaining[0].Quantity)
}

func TestPurchase_ExactStockBoundary(t *testing.T) {
	products := newMockProductStore(&domain.Product{ID: "p1", Price: 4, Stock: 5})
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 5},
	}})
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, &mockTicketWriter{}, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)

	assert.InDelta(t, 20, ticket.Amount, 0.001)
	assert.Equal(t, 0, products.stock("p1"))
	assert.Empty(t, carts.lines("c1"))
}

func TestPurchase_EmptyCart_ZeroAmountTicket(t *testing.T) {
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{}})
	tickets := &mockTicketWriter{}
	engine := NewEngine(newMockProductStore(), carts, &mockUserLookup{user: testUser("c1")}, tickets, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)

	assert.Zero(t, ticket.Amount)
	require.Len(t, tickets.tickets, 1)
	assert.Regexp(t, regexp.MustCompile(`^\d{14}$`), ticket.PurchaseDatetime)
}

func TestPurchase_AllLinesUnfulfillable(t *testing.T) {
	products := newMockProductStore(&domain.Product{ID: "p1", Price: 9, Stock: 1})
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 3},
	}})
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, &mockTicketWriter{}, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)

	assert.Zero(t, ticket.Amount)
	assert.Equal(t, 1, products.stock("p1"))
	assert.Len(t, carts.lines("c1"), 1)
}

func TestPurchase_CartMissing(t *testing.T) {
	tickets := &mockTicketWriter{}
	engine := NewEngine(newMockProductStore(), newMockCartStore(), &mockUserLookup{}, tickets, nil, nil)

	_, err := engine.Purchase(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, tickets.tickets)
}

func TestPurchase_UserMissing_NoMutation(t *testing.T) {
	products := newMockProductStore(&domain.Product{ID: "p1", Price: 3, Stock: 10})
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 1},
	}})
	tickets := &mockTicketWriter{}
	engine := NewEngine(products, carts, &mockUserLookup{}, tickets, nil, nil)

	_, err := engine.Purchase(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, 10, products.stock("p1"))
	assert.Len(t, carts.lines("c1"), 1)
	assert.Empty(t, tickets.tickets)
}

func TestPurchase_MissingProductLine_LeftInCart(t *testing.T) {
	products := newMockProductStore(&domain.Product{ID: "p1", Price: 3, Stock: 10})
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "gone", Quantity: 1},
	}})
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, &mockTicketWriter{}, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)

	assert.InDelta(t, 6, ticket.Amount, 0.001)
	remaining := carts.lines("c1")
	require.Len(t, remaining, 1)
	assert.Equal(t, "gone", remaining[0].ProductID)
}

func TestPurchase_WritePhaseFailure_SurfacedAsPartial(t *testing.T) {
	products := newMockProductStore(
		&domain.Product{ID: "p1", Price: 3, Stock: 10},
		&domain.Product{ID: "p2", Price: 7, Stock: 10},
	)
	products.decrementErr["p2"] = errors.New("connection reset")
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}})
	tickets := &mockTicketWriter{}
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, tickets, nil, nil)

	ticket, err := engine.Purchase(context.Background(), "c1")

	var partial *PartialCheckoutError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"p1"}, partial.Applied)
	assert.Equal(t, []string{"p2"}, partial.Failed)

	// The ticket is still emitted, with the amount settled before the
	// write phase.
	require.NotNil(t, ticket)
	assert.InDelta(t, 2*3+1*7, ticket.Amount, 0.001)
	require.Len(t, tickets.tickets, 1)
}

func TestPurchase_TicketWriteFailure(t *testing.T) {
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{}})
	tickets := &mockTicketWriter{err: errors.New("postgres down")}
	engine := NewEngine(newMockProductStore(), carts, &mockUserLookup{user: testUser("c1")}, tickets, nil, nil)

	_, err := engine.Purchase(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestPurchase_SecondRunOperatesOnResidual(t *testing.T) {
	products := newMockProductStore(
		&domain.Product{ID: "p1", Price: 3, Stock: 10},
		&domain.Product{ID: "p2", Price: 7, Stock: 1},
	)
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 5},
	}})
	tickets := &mockTicketWriter{}
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, tickets, nil, nil)
	ctx := context.Background()

	_, err := engine.Purchase(ctx, "c1")
	require.NoError(t, err)

	// Restock p2, then check out the residual line.
	products.m.Lock()
	products.products["p2"].Stock = 5
	products.m.Unlock()

	second, err := engine.Purchase(ctx, "c1")
	require.NoError(t, err)

	assert.InDelta(t, 5*7, second.Amount, 0.001)
	assert.Empty(t, carts.lines("c1"))
	assert.Len(t, tickets.tickets, 2)
}

func TestPurchase_InvalidatesProductCache(t *testing.T) {
	products := newMockProductStore(&domain.Product{ID: "p1", Price: 3, Stock: 10})
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 1},
	}})
	inv := &mockInvalidator{}
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, &mockTicketWriter{}, inv, nil)

	_, err := engine.Purchase(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, inv.deleted)
}

func TestCartLock_SameCartSameLock(t *testing.T) {
	engine := NewEngine(newMockProductStore(), newMockCartStore(), &mockUserLookup{}, &mockTicketWriter{}, nil, nil)

	assert.Same(t, engine.cartLock("c1"), engine.cartLock("c1"))
	assert.NotSame(t, engine.cartLock("c1"), engine.cartLock("c2"))
}

func TestPurchase_ConcurrentSameCart_NoOverCommit(t *testing.T) {
	products := newMockProductStore(&domain.Product{ID: "p1", Price: 3, Stock: 5})
	carts := newMockCartStore(&domain.Cart{ID: "c1", Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 5},
	}})
	tickets := &mockTicketWriter{}
	engine := NewEngine(products, carts, &mockUserLookup{user: testUser("c1")}, tickets, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.Purchase(context.Background(), "c1")
		}()
	}
	wg.Wait()

	// Only one run can fulfill the line; the rest see an empty cart.
	assert.Equal(t, 0, products.stock("p1"))
	assert.Len(t, tickets.tickets, 4)

	var total float64
	for _, tk := range tickets.tickets {
		total += tk.Amount
	}
	assert.InDelta(t, 15, total, 0.001)
}
