package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CesValde/MongoCart/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("item not found in cart")
)

// ListFilter narrows and pages a catalog listing. Category is an exact match
// regardless of case, Query is a substring match over title, description and
// category, Status filters on availability when set, Sort orders by price
// ("asc"/"desc") and leaves store-native order otherwise.
type ListFilter struct {
	Category string
	Status   *bool
	Query    string
	Sort     string
	Page     int
	Limit    int
}

// ProductRepository defines the catalog storage operations.
// Consumers define this interface, not the MongoDB implementation.
type ProductRepository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Product, int64, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Product, error)
	InsertMany(ctx context.Context, products []domain.Product) ([]domain.Product, error)
	Replace(ctx context.Context, id primitive.ObjectID, p domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
}

// CartRepository defines the cart storage operations. Every item mutation is
// a single conditional update so concurrent callers cannot lose writes.
type CartRepository interface {
	List(ctx context.Context) ([]domain.Cart, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) error
	AddProduct(ctx context.Context, cartID, productID primitive.ObjectID) error
	SetQuantity(ctx context.Context, cartID, productID primitive.ObjectID, quantity int) error
	RemoveProduct(ctx context.Context, cartID, productID primitive.ObjectID) error
	ReplaceProducts(ctx context.Context, cartID primitive.ObjectID, items []domain.LineItem) error
	ClearProducts(ctx context.Context, cartID primitive.ObjectID) error
}
