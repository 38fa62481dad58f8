package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CesValde/MongoCart/internal/repository"
)

func newCatalogFixture(t *testing.T) (*CatalogService, *repository.MemoryProductRepository, *recordingPublisher) {
	t.Helper()
	repo := repository.NewMemoryProductRepository()
	pub := &recordingPublisher{}
	return NewCatalogService(repo, pub), repo, pub
}

func productInput(title, code string, price float64) ProductInput {
	status := true
	stock := 10
	return ProductInput{
		Title:       title,
		Description: "a product",
		Code:        code,
		Price:       price,
		Status:      &status,
		Stock:       &stock,
		Category:    "misc",
		Thumbnails:  []string{"/img/" + code + ".jpg"},
	}
}

func TestCreate_AcceptsUnavailableProduct(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	in := productInput("keyboard", "KB-1", 49.90)
	off := false
	in.Status = &off

	inserted, err := svc.Create(context.Background(), []ProductInput{in})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.False(t, inserted[0].Status)
}

func TestCreate_RejectsZeroStockOnlyWhenMissing(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	in := productInput("keyboard", "KB-1", 49.90)
	zero := 0
	in.Stock = &zero

	inserted, err := svc.Create(context.Background(), []ProductInput{in})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted[0].Stock)

	in.Stock = nil
	_, err = svc.Create(context.Background(), []ProductInput{in})
	assert.True(t, IsValidation(err))
}

func TestCreate_BatchIsAllOrNothing(t *testing.T) {
	svc, repo, _ := newCatalogFixture(t)
	ctx := context.Background()

	bad := productInput("", "KB-2", 19.90) // missing title
	_, err := svc.Create(ctx, []ProductInput{
		productInput("keyboard", "KB-1", 49.90),
		bad,
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	all, total, err := repo.List(ctx, repository.ListFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, total)
}

func TestCreate_RejectsNonPositivePrice(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	in := productInput("keyboard", "KB-1", 0)
	_, err := svc.Create(context.Background(), []ProductInput{in})
	assert.True(t, IsValidation(err))
}

func TestList_PaginationMetadata(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	inputs := make([]ProductInput, 25)
	for i := range inputs {
		inputs[i] = productInput("item", "SKU-"+string(rune('A'+i)), float64(i+1))
	}
	_, err := svc.Create(ctx, inputs)
	require.NoError(t, err)

	page, err := svc.List(ctx, ListQuery{Limit: 10, Page: 2})
	require.NoError(t, err)

	assert.Len(t, page.Payload, 10)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.True(t, page.HasPrevPage)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.PrevPage)
	require.NotNil(t, page.NextPage)
	assert.Equal(t, 1, *page.PrevPage)
	assert.Equal(t, 3, *page.NextPage)

	last, err := svc.List(ctx, ListQuery{Limit: 10, Page: 3})
	require.NoError(t, err)
	assert.Len(t, last.Payload, 5)
	assert.False(t, last.HasNextPage)
	assert.Nil(t, last.NextPage)
}

func TestList_DefaultsAndEmptyCatalog(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	page, err := svc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Payload)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.False(t, page.HasPrevPage)
	assert.False(t, page.HasNextPage)
}

func TestList_PriceSort(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, []ProductInput{
		productInput("mid", "M", 20),
		productInput("cheap", "C", 10),
		productInput("dear", "D", 30),
	})
	require.NoError(t, err)

	asc, err := svc.List(ctx, ListQuery{Sort: "asc"})
	require.NoError(t, err)
	require.Len(t, asc.Payload, 3)
	assert.Equal(t, "cheap", asc.Payload[0].Title)
	assert.Equal(t, "dear", asc.Payload[2].Title)

	desc, err := svc.List(ctx, ListQuery{Sort: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "dear", desc.Payload[0].Title)
}

func TestList_StatusFilterOnlyLiteralBooleans(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	on := productInput("visible", "V", 10)
	off := productInput("hidden", "H", 10)
	f := false
	off.Status = &f
	_, err := svc.Create(ctx, []ProductInput{on, off})
	require.NoError(t, err)

	page, err := svc.List(ctx, ListQuery{Status: "true"})
	require.NoError(t, err)
	require.Len(t, page.Payload, 1)
	assert.Equal(t, "visible", page.Payload[0].Title)

	page, err = svc.List(ctx, ListQuery{Status: "false"})
	require.NoError(t, err)
	require.Len(t, page.Payload, 1)
	assert.Equal(t, "hidden", page.Payload[0].Title)

	// Anything else leaves the filter off.
	page, err = svc.List(ctx, ListQuery{Status: "yes"})
	require.NoError(t, err)
	assert.Len(t, page.Payload, 2)
}

func TestGet_BadAndMissingIDs(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope")
	assert.True(t, IsValidation(err))

	_, err = svc.Get(ctx, primitive.NewObjectID().Hex())
	assert.True(t, IsNotFound(err))
}

func TestReplace_OverwritesAndKeepsID(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	inserted, err := svc.Create(ctx, []ProductInput{productInput("keyboard", "KB-1", 49.90)})
	require.NoError(t, err)
	original := inserted[0]

	updated, err := svc.Replace(ctx, original.ID.Hex(), productInput("keyboard pro", "KB-1-PRO", 79.90))
	require.NoError(t, err)
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "keyboard pro", updated.Title)
	assert.Equal(t, 79.90, updated.Price)
}

func TestReplace_MissingProduct(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	_, err := svc.Replace(context.Background(), primitive.NewObjectID().Hex(), productInput("x", "X", 1))
	assert.True(t, IsNotFound(err))
}

func TestDelete_ReturnsRemovedProduct(t *testing.T) {
	svc, _, pub := newCatalogFixture(t)
	ctx := context.Background()

	inserted, err := svc.Create(ctx, []ProductInput{productInput("keyboard", "KB-1", 49.90)})
	require.NoError(t, err)

	before := pub.count()
	deleted, err := svc.Delete(ctx, inserted[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, inserted[0].ID, deleted.ID)
	assert.Equal(t, before+1, pub.count())

	_, err = svc.Get(ctx, inserted[0].ID.Hex())
	assert.True(t, IsNotFound(err))
}
