package service

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/CesValde/MongoCart/internal/broadcast"
	"github.com/CesValde/MongoCart/internal/domain"
	"github.com/CesValde/MongoCart/internal/repository"
)

var validate = validator.New()

// ProductInput is the payload for bulk insert and wholesale replace. Status
// and Stock are pointers so that false and zero count as present: an
// out-of-stock product is a legal catalog entry, not a missing field.
type ProductInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Code        string   `json:"code" validate:"required"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Status      *bool    `json:"status" validate:"required"`
	Stock       *int     `json:"stock" validate:"required,min=0"`
	Category    string   `json:"category" validate:"required"`
	Thumbnails  []string `json:"thumbnails" validate:"required,min=1"`
}

func (in ProductInput) toProduct() domain.Product {
	return domain.Product{
		Title:       in.Title,
		Description: in.Description,
		Code:        in.Code,
		Price:       in.Price,
		Status:      *in.Status,
		Stock:       *in.Stock,
		Category:    in.Category,
		Thumbnails:  in.Thumbnails,
	}
}

// ListQuery carries the raw listing parameters from the query string.
// Zero values mean "not supplied".
type ListQuery struct {
	Limit    int
	Page     int
	Category string
	Status   string
	Query    string
	Sort     string
}

// ProductPage is one page of matching products plus pagination metadata.
// PrevPage and NextPage are nil at the edges.
type ProductPage struct {
	Payload     []domain.Product
	TotalPages  int
	PrevPage    *int
	NextPage    *int
	Page        int
	HasPrevPage bool
	HasNextPage bool
	Limit       int
}

// CatalogService owns product records. It is stateless; every operation goes
// straight to the repository and announces successful mutations through the
// publisher.
type CatalogService struct {
	repo repository.ProductRepository
	pub  broadcast.Publisher
}

func NewCatalogService(repo repository.ProductRepository, pub broadcast.Publisher) *CatalogService {
	if pub == nil {
		pub = broadcast.NopPublisher{}
	}
	return &CatalogService{repo: repo, pub: pub}
}

func (s *CatalogService) List(ctx context.Context, q ListQuery) (*ProductPage, error) {
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Page < 1 {
		q.Page = 1
	}

	filter := repository.ListFilter{
		Category: q.Category,
		Query:    q.Query,
		Sort:     q.Sort,
		Page:     q.Page,
		Limit:    q.Limit,
	}
	// Only the literal strings toggle the availability filter; anything else
	// leaves it off.
	switch q.Status {
	case "true":
		t := true
		filter.Status = &t
	case "false":
		f := false
		filter.Status = &f
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(q.Limit)))
	if totalPages < 1 {
		totalPages = 1
	}

	page := &ProductPage{
		Payload:     products,
		TotalPages:  totalPages,
		Page:        q.Page,
		HasPrevPage: q.Page > 1,
		HasNextPage: q.Page < totalPages,
		Limit:       q.Limit,
	}
	if page.HasPrevPage {
		prev := q.Page - 1
		page.PrevPage = &prev
	}
	if page.HasNextPage {
		next := q.Page + 1
		page.NextPage = &next
	}
	return page, nil
}

func (s *CatalogService) Get(ctx context.Context, pid string) (*domain.Product, error) {
	id, err := parseID("product", pid)
	if err != nil {
		return nil, err
	}

	product, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return nil, notFoundf("product with id %s not found", pid)
		}
		return nil, err
	}
	return product, nil
}

// Create inserts one or many products. Every payload is validated before any
// insert happens, so a bad entry anywhere in the batch rejects the whole
// batch.
func (s *CatalogService) Create(ctx context.Context, inputs []ProductInput) ([]domain.Product, error) {
	if len(inputs) == 0 {
		return nil, validationf("no products to insert")
	}

	for _, in := range inputs {
		if err := validate.Struct(in); err != nil {
			return nil, validationf("missing values: %v", err)
		}
	}

	products := make([]domain.Product, len(inputs))
	for i, in := range inputs {
		products[i] = in.toProduct()
	}

	inserted, err := s.repo.InsertMany(ctx, products)
	if err != nil {
		return nil, err
	}

	s.announce(ctx, broadcast.Event{Type: broadcast.EventProductCreated})
	return inserted, nil
}

// Replace overwrites every field of an existing product. The identifier in
// the payload, if any, is ignored: path wins, _id is immutable.
func (s *CatalogService) Replace(ctx context.Context, pid string, in ProductInput) (*domain.Product, error) {
	id, err := parseID("product", pid)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, validationf("missing values: %v", err)
	}

	if err := s.repo.Replace(ctx, id, in.toProduct()); err != nil {
		if err == repository.ErrProductNotFound {
			return nil, notFoundf("product with id %s not found", pid)
		}
		return nil, err
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.announce(ctx, broadcast.Event{Type: broadcast.EventProductUpdated, ID: pid})
	return updated, nil
}

func (s *CatalogService) Delete(ctx context.Context, pid string) (*domain.Product, error) {
	id, err := parseID("product", pid)
	if err != nil {
		return nil, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return nil, notFoundf("product with id %s not found", pid)
		}
		return nil, err
	}

	s.announce(ctx, broadcast.Event{Type: broadcast.EventProductDeleted, ID: pid})
	return deleted, nil
}

func (s *CatalogService) announce(ctx context.Context, e broadcast.Event) {
	if err := s.pub.Changed(ctx, e); err != nil {
		logrus.WithError(err).WithField("event", e.Type).Warn("catalog event publish failed")
	}
}
