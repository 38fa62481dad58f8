package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/CesValde/MongoCart/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) List(ctx context.Context) ([]domain.Cart, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	defer cursor.Close(ctx)

	carts := []domain.Cart{}
	if err := cursor.All(ctx, &carts); err != nil {
		return nil, fmt.Errorf("failed to decode carts: %w", err)
	}
	return carts, nil
}

func (m *mongoCartRepository) Get(ctx context.Context, id primitive.ObjectID) (*domain.Cart, error) {
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

func (m *mongoCartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if cart.Products == nil {
		cart.Products = []domain.LineItem{}
	}

	result, err := m.collection.InsertOne(ctx, cart)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return nil
}

// AddProduct merges a product into the cart's line items: the quantity of an
// existing entry is incremented by one, otherwise a fresh {product, quantity: 1}
// entry is appended. Both branches are single conditional updates, so two
// concurrent adds against the same cart and product never lose an increment
// the way a load-mutate-save cycle would.
func (m *mongoCartRepository) AddProduct(ctx context.Context, cartID, productID primitive.ObjectID) error {
	now := time.Now()

	inc := bson.M{
		"$inc": bson.M{"products.$.quantity": 1},
		"$set": bson.M{"updated_at": now},
	}

	// Increment the matching embedded item if it is already there.
	result, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "products.product": productID}, inc)
	if err != nil {
		return fmt.Errorf("failed to increment item quantity: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	// Append a new line item. The $ne guard keeps a concurrent add of the
	// same product from producing a duplicate entry.
	push := bson.M{
		"$push": bson.M{"products": domain.LineItem{Product: productID, Quantity: 1}},
		"$set":  bson.M{"updated_at": now},
	}
	result, err = m.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "products.product": bson.M{"$ne": productID}}, push)
	if err != nil {
		return fmt.Errorf("failed to push new item: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	// The guarded push matched nothing: either another request appended the
	// item between the two updates, or the cart does not exist. One more
	// increment attempt settles which.
	result, err = m.collection.UpdateOne(ctx,
		bson.M{"_id": cartID, "products.product": productID}, inc)
	if err != nil {
		return fmt.Errorf("failed to increment item quantity: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	return ErrCartNotFound
}

func (m *mongoCartRepository) SetQuantity(ctx context.Context, cartID, productID primitive.ObjectID, quantity int) error {
	filter := bson.M{
		"_id":              cartID,
		"products.product": productID,
	}
	update := bson.M{
		"$set": bson.M{
			"products.$[elem].quantity": quantity,
			"updated_at":                time.Now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product": productID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to set item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return m.missingCartOrItem(ctx, cartID)
	}
	return nil
}

func (m *mongoCartRepository) RemoveProduct(ctx context.Context, cartID, productID primitive.ObjectID) error {
	// The item must be part of the filter: with a bare {_id} filter the
	// updated_at $set would register as a modification even when $pull
	// matched nothing, and an absent item would read as success.
	filter := bson.M{
		"_id":              cartID,
		"products.product": productID,
	}
	update := bson.M{
		"$pull": bson.M{
			"products": bson.M{"product": productID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.MatchedCount == 0 {
		return m.missingCartOrItem(ctx, cartID)
	}
	return nil
}

func (m *mongoCartRepository) ReplaceProducts(ctx context.Context, cartID primitive.ObjectID, items []domain.LineItem) error {
	if items == nil {
		items = []domain.LineItem{}
	}

	// The replacement sequence is stored verbatim: no merge, no dedup pass.
	update := bson.M{
		"$set": bson.M{
			"products":   items,
			"updated_at": time.Now(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return fmt.Errorf("failed to replace items: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) ClearProducts(ctx context.Context, cartID primitive.ObjectID) error {
	return m.ReplaceProducts(ctx, cartID, []domain.LineItem{})
}

// missingCartOrItem reports which half of a cart+item filter failed to match.
func (m *mongoCartRepository) missingCartOrItem(ctx context.Context, cartID primitive.ObjectID) error {
	err := m.collection.FindOne(ctx, bson.M{"_id": cartID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrCartNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check cart existence: %w", err)
	}
	return ErrItemNotFound
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}
