package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"github.com/CesValde/MongoCart/internal/broadcast"
	"github.com/CesValde/MongoCart/internal/cache"
	"github.com/CesValde/MongoCart/internal/domain"
	"github.com/CesValde/MongoCart/internal/repository"
)

// LineItemInput is a caller-supplied line item for cart creation and
// wholesale replace. Quantity is a pointer so zero counts as supplied and is
// rejected rather than silently defaulted.
type LineItemInput struct {
	Product  string `json:"product"`
	Quantity *int   `json:"quantity"`
}

// ParseLineItems applies the hardened boundary checks to a caller-supplied
// item sequence: every entry must name a well-formed product reference and
// carry a quantity above zero. What comes back is stored verbatim; merging
// duplicates is not this function's job.
func ParseLineItems(items []LineItemInput) ([]domain.LineItem, error) {
	parsed := make([]domain.LineItem, len(items))
	for i, item := range items {
		id, err := parseID("product", item.Product)
		if err != nil {
			return nil, err
		}
		if item.Quantity == nil {
			return nil, validationf("every item must include a quantity")
		}
		if *item.Quantity < 1 {
			return nil, validationf("quantity must be a number greater than or equal to 1")
		}
		parsed[i] = domain.LineItem{Product: id, Quantity: *item.Quantity}
	}
	return parsed, nil
}

// CartService owns cart records and the line-item reconciliation rules. It
// checks cart existence before product existence, so a missing cart wins when
// both are absent. Every mutation either fully persists or leaves the cart
// untouched.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	pub      broadcast.Publisher
	sfg      singleflight.Group // prevents cache stampede on cart reads
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, c cache.CartCache, pub broadcast.Publisher) *CartService {
	if pub == nil {
		pub = broadcast.NopPublisher{}
	}
	return &CartService{
		carts:    carts,
		products: products,
		cache:    c,
		pub:      pub,
	}
}

func (s *CartService) List(ctx context.Context) ([]domain.Cart, error) {
	return s.carts.List(ctx)
}

// Create persists a new cart. A nil item sequence means an empty cart, not an
// error. A supplied sequence is stored verbatim: this path does not run the
// merge, so duplicate product references survive creation.
func (s *CartService) Create(ctx context.Context, items []domain.LineItem) (*domain.Cart, error) {
	cart := &domain.Cart{Products: items}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, err
	}

	s.announce(ctx, cart.ID)
	return cart, nil
}

// Get loads a cart, serving from the Redis cache when it can. Concurrent
// misses for the same cart collapse into one repository read.
func (s *CartService) Get(ctx context.Context, cid string) (*domain.Cart, error) {
	id, err := parseID("cart", cid)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(id.Hex(), func() (interface{}, error) {
		if s.cache != nil {
			cached, cacheErr := s.cache.Get(ctx, id.Hex())
			if cacheErr == nil {
				return cached, nil
			}
			if !errors.Is(cacheErr, cache.ErrCacheMiss) {
				logrus.WithError(cacheErr).Warn("cart cache get failed")
			}
		}

		cart, repoErr := s.carts.Get(ctx, id)
		if repoErr != nil {
			return nil, repoErr
		}

		if s.cache != nil {
			go func() {
				setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if setErr := s.cache.Set(setCtx, id.Hex(), cart); setErr != nil {
					logrus.WithError(setErr).Warn("cart cache set failed")
				}
			}()
		}
		return cart, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, notFoundf("cart with id %s not found", cid)
		}
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// GetResolved loads a cart with each line item's product reference expanded
// to the full catalog record. A reference whose product was deleted resolves
// to the bare identifier.
func (s *CartService) GetResolved(ctx context.Context, cid string) (*domain.ResolvedCart, error) {
	cart, err := s.Get(ctx, cid)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Products))
	for _, item := range cart.Products {
		ids = append(ids, item.Product)
	}

	records, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Product, len(records))
	for _, p := range records {
		byID[p.ID] = p
	}

	resolved := &domain.ResolvedCart{
		ID:       cart.ID,
		Products: make([]domain.ResolvedLineItem, len(cart.Products)),
	}
	for i, item := range cart.Products {
		if p, ok := byID[item.Product]; ok {
			resolved.Products[i] = domain.ResolvedLineItem{Product: p, Quantity: item.Quantity}
		} else {
			resolved.Products[i] = domain.ResolvedLineItem{Product: item.Product, Quantity: item.Quantity}
		}
	}
	return resolved, nil
}

// AddProduct merges a product into the cart: one more of an existing line
// item, or a fresh item with quantity one. Identifier format is checked
// first, then cart existence, then product existence; only then does the
// store-level merge run.
func (s *CartService) AddProduct(ctx context.Context, cid, pid string) (*domain.Cart, error) {
	cartID, err := parseID("cart", cid)
	if err != nil {
		return nil, err
	}
	productID, err := parseID("product", pid)
	if err != nil {
		return nil, err
	}

	if _, err := s.carts.Get(ctx, cartID); err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, notFoundf("cart with id %s not found", cid)
		}
		return nil, err
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFoundf("product with id %s not found", pid)
		}
		return nil, err
	}

	if err := s.carts.AddProduct(ctx, cartID, productID); err != nil {
		return s.cartMutationError(err, cid)
	}
	return s.afterMutation(ctx, cartID)
}

// SetQuantity overwrites a line item's quantity with an absolute value.
func (s *CartService) SetQuantity(ctx context.Context, cid, pid string, quantity int) (*domain.Cart, error) {
	cartID, err := parseID("cart", cid)
	if err != nil {
		return nil, err
	}
	productID, err := parseID("product", pid)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, validationf("quantity must be a number greater than or equal to 1")
	}

	if err := s.carts.SetQuantity(ctx, cartID, productID, quantity); err != nil {
		return s.cartMutationError(err, cid)
	}
	return s.afterMutation(ctx, cartID)
}

// RemoveProduct drops one line item, preserving the order of the rest.
func (s *CartService) RemoveProduct(ctx context.Context, cid, pid string) (*domain.Cart, error) {
	cartID, err := parseID("cart", cid)
	if err != nil {
		return nil, err
	}
	productID, err := parseID("product", pid)
	if err != nil {
		return nil, err
	}

	if err := s.carts.RemoveProduct(ctx, cartID, productID); err != nil {
		return s.cartMutationError(err, cid)
	}
	return s.afterMutation(ctx, cartID)
}

// ReplaceItems swaps the whole line-item sequence for the caller's. The
// replacement is stored as given: duplicates in it are kept, not merged.
func (s *CartService) ReplaceItems(ctx context.Context, cid string, items []domain.LineItem) (*domain.Cart, error) {
	cartID, err := parseID("cart", cid)
	if err != nil {
		return nil, err
	}

	if err := s.carts.ReplaceProducts(ctx, cartID, items); err != nil {
		return s.cartMutationError(err, cid)
	}
	return s.afterMutation(ctx, cartID)
}

// Clear empties the cart's line-item sequence. The cart itself survives.
func (s *CartService) Clear(ctx context.Context, cid string) (*domain.Cart, error) {
	cartID, err := parseID("cart", cid)
	if err != nil {
		return nil, err
	}

	if err := s.carts.ClearProducts(ctx, cartID); err != nil {
		return s.cartMutationError(err, cid)
	}
	return s.afterMutation(ctx, cartID)
}

func (s *CartService) cartMutationError(err error, cid string) (*domain.Cart, error) {
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		return nil, notFoundf("cart with id %s not found", cid)
	case errors.Is(err, repository.ErrItemNotFound):
		return nil, notFoundf("product not found in cart %s", cid)
	default:
		return nil, err
	}
}

// afterMutation invalidates the cache, announces the change and returns the
// cart as persisted.
func (s *CartService) afterMutation(ctx context.Context, cartID primitive.ObjectID) (*domain.Cart, error) {
	s.invalidate(cartID)
	s.announce(ctx, cartID)

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) invalidate(cartID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID.Hex()); err != nil {
		logrus.WithError(err).Warn("cart cache invalidate failed")
	}
}

func (s *CartService) announce(ctx context.Context, cartID primitive.ObjectID) {
	e := broadcast.Event{Type: broadcast.EventCartUpdated, ID: cartID.Hex()}
	if err := s.pub.Changed(ctx, e); err != nil {
		logrus.WithError(err).Warn("cart event publish failed")
	}
}
