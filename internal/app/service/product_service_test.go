package service

import (
	"context"
	"strings"
	"testing"

	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductServiceTest(t *testing.T) (ProductService, *testEnv, *fakeStorage) {
	env := setupServiceTest(t)
	images := newFakeStorage()
	return NewProductService(env.Products, env.Reviews, env.Orders, images), env, images
}

func pngUpload(name string) *ImageUpload {
	body := "\x89PNG fake"
	return &ImageUpload{Filename: name, ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestProductService_CreateProduct(t *testing.T) {
	svc, _, images := setupProductServiceTest(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{
		Name:     "Hoodie",
		Price:    45,
		Category: " Outerwear ",
		Tags:     []string{"winter"},
		Variants: []VariantInput{
			{Size: "M", Color: "Black", Stock: 3},
			{Label: "L", Stock: 1},
		},
	}, pngUpload("hoodie.png"))
	require.NoError(t, err)
	assert.Equal(t, "outerwear", product.Category)
	require.Len(t, product.Variants, 2)
	assert.Equal(t, "M/Black", product.Variants[0].Label)
	assert.True(t, strings.HasPrefix(product.ImageKey, "products/"))
	assert.Equal(t, "https://cdn.test/"+product.ImageKey, product.ImageURL)
	assert.Contains(t, images.objects, product.ImageKey)

	simple, err := svc.CreateProduct(ctx, ProductInput{Name: "Socks", Price: 3, Stock: 7}, nil)
	require.NoError(t, err)
	require.Len(t, simple.Variants, 1)
	assert.Equal(t, "", simple.Variants[0].Label)
	assert.Equal(t, 7, simple.Variants[0].Stock)

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, ProductInput{Name: "", Price: 3}, nil)
		assert.ErrorIs(t, err, ErrInvalidProduct)
		_, err = svc.CreateProduct(ctx, ProductInput{Name: "Free", Price: 0}, nil)
		assert.ErrorIs(t, err, ErrInvalidProduct)
		_, err = svc.CreateProduct(ctx, ProductInput{Name: "Dup", Price: 3, Variants: []VariantInput{{Label: "M"}, {Label: "M"}}}, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)

		bad := pngUpload("doc.pdf")
		bad.ContentType = "application/pdf"
		_, err = svc.CreateProduct(ctx, ProductInput{Name: "Doc", Price: 3}, bad)
		assert.ErrorIs(t, err, ErrInvalidImage)
	})
}

func TestProductService_UpdateAndDelete(t *testing.T) {
	svc, env, images := setupProductServiceTest(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{
		Name:     "Tee",
		Price:    10,
		Variants: []VariantInput{{Label: "S", Stock: 1}, {Label: "M", Stock: 2}},
	}, pngUpload("tee.png"))
	require.NoError(t, err)
	oldKey := product.ImageKey

	updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{
		Name:     "Tee v2",
		Price:    12,
		Variants: []VariantInput{{Label: "M", Stock: 5}, {Label: "L", Stock: 1}},
	}, pngUpload("tee2.png"))
	require.NoError(t, err)
	assert.Equal(t, "Tee v2", updated.Name)
	assert.Equal(t, 12.0, updated.Price)
	assert.NotEqual(t, oldKey, updated.ImageKey)
	assert.Nil(t, updated.Variant("S"))
	require.NotNil(t, updated.Variant("M"))
	assert.Equal(t, 5, updated.Variant("M").Stock)

	// Old images stay for order snapshots.
	assert.Contains(t, images.objects, oldKey)

	_, err = svc.UpdateProduct(ctx, 9999, ProductInput{Name: "X", Price: 1}, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, product.ID), ErrProductNotFound)
	_, err = svc.GetProduct(ctx, product.ID, 0)
	assert.ErrorIs(t, err, ErrProductNotFound)

	var count int64
	require.NoError(t, env.DB.Unscoped().Model(&model.Product{}).Where("id = ?", product.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProductService_ListProducts(t *testing.T) {
	svc, env, _ := setupProductServiceTest(t)
	ctx := context.Background()

	env.createProduct(t, "Red Shirt", 20)
	env.createProduct(t, "Blue Shirt", 15)
	hatItem := &model.Product{Name: "Cap", Price: 8, Category: "hats", Variants: []model.ProductVariant{{Stock: 1}}}
	require.NoError(t, env.DB.Create(hatItem).Error)

	page, err := svc.ListProducts(ctx, ProductListOptions{Search: "shirt"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = svc.ListProducts(ctx, ProductListOptions{Category: "hats"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Cap", page.Products[0].Name)

	page, err = svc.ListProducts(ctx, ProductListOptions{Sort: repository.ProductSortPrice, Ascending: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "Cap", page.Products[0].Name)
	assert.Equal(t, "Red Shirt", page.Products[2].Name)

	page, err = svc.ListProducts(ctx, ProductListOptions{MinPrice: floatPtr(10), MaxPrice: floatPtr(16)})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Blue Shirt", page.Products[0].Name)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tops", "hats"}, categories)
}

func TestProductService_GetProduct(t *testing.T) {
	svc, env, _ := setupProductServiceTest(t)
	ctx := context.Background()
	reviews := NewReviewService(env.Reviews, env.Products, env.Orders)

	buyer := env.createUser(t, "buyer@example.com", true)
	other := env.createUser(t, "other@example.com", true)
	shirt := env.createProduct(t, "Shirt", 10)
	placeOrder(t, env, buyer, shirt, "", 1)
	_, err := reviews.CreateReview(ctx, buyer.ID, shirt.ID, ReviewInput{Rating: intPtr(4)})
	require.NoError(t, err)
	_, err = reviews.CreateReview(ctx, other.ID, shirt.ID, ReviewInput{Text: "no rating"})
	require.NoError(t, err)

	detail, err := svc.GetProduct(ctx, shirt.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", detail.Name)
	assert.Equal(t, 4.0, detail.AverageRating)
	assert.Equal(t, int64(1), detail.RatingCount)
	assert.True(t, detail.HasPurchased)

	detail, err = svc.GetProduct(ctx, shirt.ID, 0)
	require.NoError(t, err)
	assert.False(t, detail.HasPurchased)
}

func TestProductService_BestSellers(t *testing.T) {
	svc, env, _ := setupProductServiceTest(t)
	ctx := context.Background()

	slow := env.createProduct(t, "Slow", 10)
	fast := env.createProduct(t, "Fast", 10)
	require.NoError(t, env.Products.IncrementSold(ctx, slow.ID, 1))
	require.NoError(t, env.Products.IncrementSold(ctx, fast.ID, 9))

	products, err := svc.BestSellers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, fast.ID, products[0].ID)
}
