package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CesValde/MongoCart/internal/domain"
)

// MemoryProductRepository implements ProductRepository with in-memory storage.
// It mirrors the MongoDB implementation's contract and exists for tests and
// for running the server without a database.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products []domain.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{}
}

func (r *MemoryProductRepository) List(_ context.Context, f ListFilter) ([]domain.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	matched := []domain.Product{}
	for _, p := range r.products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(p.Title), q) &&
				!strings.Contains(strings.ToLower(p.Description), q) &&
				!strings.Contains(strings.ToLower(p.Category), q) {
				continue
			}
		}
		matched = append(matched, p)
	}

	switch f.Sort {
	case "asc":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price < matched[j].Price })
	case "desc":
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Price > matched[j].Price })
	}

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]domain.Product, end-start)
	copy(page, matched[start:end])
	return page, total, nil
}

func (r *MemoryProductRepository) Get(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, ErrProductNotFound
}

func (r *MemoryProductRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := []domain.Product{}
	for _, p := range r.products {
		for _, id := range ids {
			if p.ID == id {
				found = append(found, p)
				break
			}
		}
	}
	return found, nil
}

func (r *MemoryProductRepository) InsertMany(_ context.Context, products []domain.Product) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range products {
		if products[i].ID.IsZero() {
			products[i].ID = primitive.NewObjectID()
		}
		r.products = append(r.products, products[i])
	}
	return products, nil
}

func (r *MemoryProductRepository) Replace(_ context.Context, id primitive.ObjectID, p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.products {
		if r.products[i].ID == id {
			p.ID = id
			r.products[i] = p
			return nil
		}
	}
	return ErrProductNotFound
}

func (r *MemoryProductRepository) Delete(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.products {
		if r.products[i].ID == id {
			deleted := r.products[i]
			r.products = append(r.products[:i], r.products[i+1:]...)
			return &deleted, nil
		}
	}
	return nil, ErrProductNotFound
}

// MemoryCartRepository implements CartRepository with in-memory storage. The
// whole store shares one mutex, so every operation is as atomic as a Mongo
// document update.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[primitive.ObjectID]*domain.Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[primitive.ObjectID]*domain.Cart),
	}
}

func (r *MemoryCartRepository) List(context.Context) ([]domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	carts := []domain.Cart{}
	for _, c := range r.carts {
		carts = append(carts, *c)
	}
	return carts, nil
}

func (r *MemoryCartRepository) Get(_ context.Context, id primitive.ObjectID) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	copied := *cart
	copied.Products = append([]domain.LineItem{}, cart.Products...)
	return &copied, nil
}

func (r *MemoryCartRepository) Create(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	if cart.Products == nil {
		cart.Products = []domain.LineItem{}
	}
	stored := *cart
	stored.Products = append([]domain.LineItem{}, cart.Products...)
	r.carts[cart.ID] = &stored
	return nil
}

func (r *MemoryCartRepository) AddProduct(_ context.Context, cartID, productID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}

	for i := range cart.Products {
		if cart.Products[i].Product == productID {
			cart.Products[i].Quantity++
			return nil
		}
	}
	cart.Products = append(cart.Products, domain.LineItem{Product: productID, Quantity: 1})
	return nil
}

func (r *MemoryCartRepository) SetQuantity(_ context.Context, cartID, productID primitive.ObjectID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}

	for i := range cart.Products {
		if cart.Products[i].Product == productID {
			cart.Products[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

func (r *MemoryCartRepository) RemoveProduct(_ context.Context, cartID, productID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}

	for i := range cart.Products {
		if cart.Products[i].Product == productID {
			cart.Products = append(cart.Products[:i], cart.Products[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (r *MemoryCartRepository) ReplaceProducts(_ context.Context, cartID primitive.ObjectID, items []domain.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	cart.Products = append([]domain.LineItem{}, items...)
	return nil
}

func (r *MemoryCartRepository) ClearProducts(ctx context.Context, cartID primitive.ObjectID) error {
	return r.ReplaceProducts(ctx, cartID, []domain.LineItem{})
}
