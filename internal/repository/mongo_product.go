package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/carlamarinaap/go-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (m *mongoProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (m *mongoProductRepository) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	var product domain.Product
	err := m.collection.FindOne(ctx, bson.M{"code": code}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by code: %w", err)
	}
	return &product, nil
}

func (m *mongoProductRepository) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	if p.Thumbnails == nil {
		p.Thumbnails = []string{}
	}

	_, err := m.collection.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (m *mongoProductRepository) Update(ctx context.Context, id string, p *domain.Product) (*domain.Product, error) {
	update := bson.M{"$set": bson.M{
		"code":        p.Code,
		"title":       p.Title,
		"description": p.Description,
		"price":       p.Price,
		"stock":       p.Stock,
		"category":    p.Category,
		"thumbnails":  p.Thumbnails,
		"status":      p.Status,
	}}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrProductNotFound
	}

	return m.FindByID(ctx, id)
}

func (m *mongoProductRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementStock is a single guarded update: the filter requires enough
// stock, so concurrent checkouts against the same product cannot drive it
// negative.
func (m *mongoProductRepository) DecrementStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": amount},
	}
	update := bson.M{"$inc": bson.M{"stock": -amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product domain.Product
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a missing product from a stock shortfall.
			if _, findErr := m.FindByID(ctx, id); errors.Is(findErr, ErrProductNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return &product, nil
}

func (m *mongoProductRepository) PaginatedQuery(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	filter := buildProductFilter(q)

	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	findOpts := options.Find().
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))
	if sort := buildProductSort(q); sort != nil {
		findOpts.SetSort(sort)
	}

	cursor, err := m.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []domain.Product{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return newProductPage(docs, total, q.Page, q.Limit), nil
}

func buildProductFilter(q ProductQuery) bson.M {
	inStock := bson.M{"stock": bson.M{"$gt": 0}}
	switch {
	case q.Category != "" && q.InStock:
		return bson.M{"$and": bson.A{bson.M{"category": q.Category}, inStock}}
	case q.Category != "":
		return bson.M{"category": q.Category}
	case q.InStock:
		return inStock
	default:
		return bson.M{}
	}
}

func buildProductSort(q ProductQuery) bson.D {
	if q.Sort != 1 && q.Sort != -1 {
		return nil
	}
	return bson.D{{Key: "price", Value: q.Sort}}
}

func newProductPage(docs []domain.Product, total int64, page, limit int) *ProductPage {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages < 1 {
		totalPages = 1
	}

	p := &ProductPage{
		Docs:          docs,
		Total:         total,
		Page:          page,
		TotalPages:    totalPages,
		HasPrevPage:   page > 1,
		HasNextPage:   page < totalPages,
		PagingCounter: (page-1)*limit + 1,
	}
	if p.HasPrevPage {
		p.PrevPage = page - 1
	}
	if p.HasNextPage {
		p.NextPage = page + 1
	}
	return p
}

func (m *mongoProductRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
