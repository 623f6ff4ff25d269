package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/carlamarinaap/go-shop/internal/apperr"
	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartRepo struct {
	m     sync.Mutex
	carts map[string]*domain.Cart
	err   error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepo) Create(context.Context) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cart := &domain.Cart{ID: "cart-1", Lines: []domain.CartLine{}}
	m.carts[cart.ID] = cart
	return cart, nil
}

func (m *mockCartRepo) FindByID(_ context.Context, id string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart, nil
}

func (m *mockCartRepo) AddOrIncrement(_ context.Context, cartID, productID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if line := cart.Line(productID); line != nil {
		line.Quantity++
		return nil
	}
	cart.Lines = append(cart.Lines, domain.CartLine{ProductID: productID, Quantity: 1})
	return nil
}

func (m *mockCartRepo) SetQuantity(_ context.Context, cartID, productID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if line := cart.Line(productID); line != nil {
		line.Quantity = quantity
	}
	return nil
}

func (m *mockCartRepo) ReplaceLines(_ context.Context, cartID string, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.Lines = lines
	return nil
}

func (m *mockCartRepo) RemoveLine(_ context.Context, cartID, productID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i, line := range cart.Lines {
		if line.ProductID == productID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.Lines = []domain.CartLine{}
	return nil
}

func TestAddOrIncrement_SameProductTwice(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.AddOrIncrement(ctx, cart.ID, "prod-1"))
	require.NoError(t, svc.AddOrIncrement(ctx, cart.ID, "prod-1"))

	got, err := svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
}

func TestAddOrIncrement_CartMissing(t *testing.T) {
	svc := NewService(newMockCartRepo())

	err := svc.AddOrIncrement(context.Background(), "missing", "prod-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSetQuantity_RejectsNonPositive(t *testing.T) {
	svc := NewService(newMockCartRepo())

	for _, qty := range []int{0, -2} {
		err := svc.SetQuantity(context.Background(), "cart-1", "prod-1", qty)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestReplaceLines_RejectsDuplicateProducts(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)

	err = svc.ReplaceLines(ctx, cart.ID, []domain.CartLine{
		{ProductID: "prod-1", Quantity: 1},
		{ProductID: "prod-1", Quantity: 2},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestReplaceLines_RejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newMockCartRepo())

	err := svc.ReplaceLines(context.Background(), "cart-1", []domain.CartLine{
		{ProductID: "prod-1", Quantity: 0},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestClear_EmptiesLines(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.AddOrIncrement(ctx, cart.ID, "prod-1"))

	require.NoError(t, svc.Clear(ctx, cart.ID))

	got, err := svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
}

func TestGet_PersistenceErrorWrapped(t *testing.T) {
	repo := newMockCartRepo()
	repo.err = assert.AnError
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), "cart-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}
