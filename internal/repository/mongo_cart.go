package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carlamarinaap/go-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) Create(ctx context.Context) (*domain.Cart, error) {
	now := time.Now()
	cart := &domain.Cart{
		ID:        primitive.NewObjectID().Hex(),
		Lines:     []domain.CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := m.collection.InsertOne(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (m *mongoCartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	var cart domain.Cart
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

// AddOrIncrement bumps the quantity of an existing line, or appends a new
// line with quantity 1. Two updates, matching on the line first: the cart
// invariant is one line per product.
func (m *mongoCartRepository) AddOrIncrement(ctx context.Context, cartID, productID string) error {
	filter := bson.M{"_id": cartID, "products.product": productID}
	update := bson.M{
		"$inc": bson.M{"products.$.quantity": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment cart line: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	push := bson.M{
		"$push": bson.M{"products": domain.CartLine{ProductID: productID, Quantity: 1}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err = m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, push)
	if err != nil {
		return fmt.Errorf("failed to add cart line: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) SetQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	filter := bson.M{"_id": cartID, "products.product": productID}
	update := bson.M{
		"$set": bson.M{
			"products.$.quantity": quantity,
			"updated_at":          time.Now(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set cart line quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		// No-op when the product is simply not a line; the cart itself
		// must exist.
		return m.requireCart(ctx, cartID)
	}
	return nil
}

func (m *mongoCartRepository) ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	update := bson.M{"$set": bson.M{
		"products":   lines,
		"updated_at": time.Now(),
	}}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return fmt.Errorf("failed to replace cart lines: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) RemoveLine(ctx context.Context, cartID, productID string) error {
	update := bson.M{
		"$pull": bson.M{"products": bson.M{"product": productID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) Clear(ctx context.Context, cartID string) error {
	update := bson.M{"$set": bson.M{
		"products":   []domain.CartLine{},
		"updated_at": time.Now(),
	}}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) requireCart(ctx context.Context, cartID string) error {
	count, err := m.collection.CountDocuments(ctx, bson.M{"_id": cartID})
	if err != nil {
		return fmt.Errorf("failed to check cart existence: %w", err)
	}
	if count == 0 {
		return ErrCartNotFound
	}
	return nil
}
