package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/carlamarinaap/go-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		collection: db.Collection("users"),
	}
}

func (m *mongoUserRepository) FindByCartID(ctx context.Context, cartID string) (*domain.User, error) {
	var user domain.User
	err := m.collection.FindOne(ctx, bson.M{"cart": cartID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by cart: %w", err)
	}
	return &user, nil
}
