package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CesValde/MongoCart/internal/domain"
)

func setupProductRepo(t *testing.T) ProductRepository {
	t.Helper()

	repo := NewMongoProductRepository(setupTestDB(t))
	require.NoError(t, repo.(*mongoProductRepository).CreateIndexes(context.Background()))
	return repo
}

func seedCatalog(t *testing.T, repo ProductRepository) []domain.Product {
	t.Helper()

	inserted, err := repo.InsertMany(context.Background(), []domain.Product{
		{Title: "keyboard", Description: "mechanical keyboard", Code: "KB-1", Price: 50, Status: true, Stock: 5, Category: "Peripherals", Thumbnails: []string{"/img/kb.jpg"}},
		{Title: "mouse", Description: "optical mouse", Code: "MS-1", Price: 20, Status: true, Stock: 9, Category: "peripherals", Thumbnails: []string{"/img/ms.jpg"}},
		{Title: "desk", Description: "standing desk", Code: "DK-1", Price: 400, Status: false, Stock: 1, Category: "furniture", Thumbnails: []string{"/img/dk.jpg"}},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 3)
	return inserted
}

func TestMongoProduct_InsertAssignsIDs(t *testing.T) {
	repo := setupProductRepo(t)

	products := seedCatalog(t, repo)
	for _, p := range products {
		assert.False(t, p.ID.IsZero())
	}
}

func TestMongoProduct_ListCategoryIsCaseInsensitiveExactMatch(t *testing.T) {
	repo := setupProductRepo(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	// "Peripherals" and "peripherals" both match, "peri" does not.
	products, total, err := repo.List(ctx, ListFilter{Category: "PERIPHERALS", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.EqualValues(t, 2, total)

	products, _, err = repo.List(ctx, ListFilter{Category: "peri", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestMongoProduct_ListStatusFilter(t *testing.T) {
	repo := setupProductRepo(t)
	seedCatalog(t, repo)

	f := false
	products, total, err := repo.List(context.Background(), ListFilter{Status: &f, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "desk", products[0].Title)
}

func TestMongoProduct_ListTextQuery(t *testing.T) {
	repo := setupProductRepo(t)
	seedCatalog(t, repo)

	products, _, err := repo.List(context.Background(), ListFilter{Query: "MOUSE", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "mouse", products[0].Title)

	// Matches descriptions too.
	products, _, err = repo.List(context.Background(), ListFilter{Query: "standing", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "desk", products[0].Title)
}

func TestMongoProduct_ListPriceSortAndPaging(t *testing.T) {
	repo := setupProductRepo(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	products, total, err := repo.List(ctx, ListFilter{Sort: "asc", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, products, 2)
	assert.Equal(t, "mouse", products[0].Title)
	assert.Equal(t, "keyboard", products[1].Title)

	products, _, err = repo.List(ctx, ListFilter{Sort: "asc", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "desk", products[0].Title)

	products, _, err = repo.List(ctx, ListFilter{Sort: "desc", Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "desk", products[0].Title)
}

func TestMongoProduct_GetNotFound(t *testing.T) {
	repo := setupProductRepo(t)

	product, err := repo.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, product)
}

func TestMongoProduct_FindByIDsSkipsMissing(t *testing.T) {
	repo := setupProductRepo(t)
	seeded := seedCatalog(t, repo)

	found, err := repo.FindByIDs(context.Background(), []primitive.ObjectID{
		seeded[0].ID,
		primitive.NewObjectID(),
		seeded[2].ID,
	})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestMongoProduct_ReplaceKeepsID(t *testing.T) {
	repo := setupProductRepo(t)
	seeded := seedCatalog(t, repo)
	ctx := context.Background()

	replacement := seeded[0]
	replacement.Title = "keyboard pro"
	replacement.Price = 80
	require.NoError(t, repo.Replace(ctx, seeded[0].ID, replacement))

	updated, err := repo.Get(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[0].ID, updated.ID)
	assert.Equal(t, "keyboard pro", updated.Title)
	assert.Equal(t, float64(80), updated.Price)

	err = repo.Replace(ctx, primitive.NewObjectID(), replacement)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMongoProduct_DeleteReturnsRemoved(t *testing.T) {
	repo := setupProductRepo(t)
	seeded := seedCatalog(t, repo)
	ctx := context.Background()

	deleted, err := repo.Delete(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[1].ID, deleted.ID)

	_, err = repo.Get(ctx, seeded[1].ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = repo.Delete(ctx, seeded[1].ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
