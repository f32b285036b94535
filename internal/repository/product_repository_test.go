package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/testutil"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

func createProduct(t *testing.T, repo domain.ProductRepository, sellerID, slug, price string, status domain.ProductStatus, images ...string) *domain.Product {
	t.Helper()
	product := &domain.Product{
		SellerID:    sellerID,
		Title:       "Product " + slug,
		Slug:        slug,
		Description: "described",
		Price:       decimal.RequireFromString(price),
		Status:      status,
	}
	for i, url := range images {
		product.Images = append(product.Images, domain.ProductImage{URL: url, DisplayOrder: i, IsPrimary: i == 0})
	}
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func TestProductRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db, logger.NewNop())

	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	createProduct(t, repo, seller.ID, "cheap", "5.00", domain.ProductActive)
	createProduct(t, repo, seller.ID, "mid", "25.50", domain.ProductActive)
	createProduct(t, repo, seller.ID, "pricey", "99.99", domain.ProductActive)
	createProduct(t, repo, seller.ID, "hidden", "30.00", domain.ProductDraft)

	floor := decimal.NewFromInt(10)
	products, total, err := repo.List(ctx, domain.ProductFilter{
		PageRequest: domain.PageRequest{Page: 1, Limit: 10},
		Status:      domain.ProductActive,
		MinPrice:    &floor,
		SortBy:      domain.SortPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, products, 2)
	assert.Equal(t, "mid", products[0].Slug)
	assert.Equal(t, "pricey", products[1].Slug)
	require.NotNil(t, products[0].Seller)
	assert.Equal(t, "seller", products[0].Seller.Username)

	all, total, err := repo.List(ctx, domain.ProductFilter{
		PageRequest: domain.PageRequest{Page: 2, Limit: 3},
		SellerID:    seller.ID,
		AnyStatus:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 1)
}

func TestProductRepository_FindByIdentifier(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db, logger.NewNop())

	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	product := createProduct(t, repo, seller.ID, "lamp", "10", domain.ProductActive, "a.jpg", "b.jpg")

	bySlug, err := repo.FindByIdentifier(ctx, "lamp")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, product.ID, bySlug.ID)
	require.Len(t, bySlug.Images, 2)
	assert.Equal(t, "a.jpg", bySlug.Images[0].URL)

	missing, err := repo.FindByIdentifier(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.SlugExists(ctx, "lamp")
	require.NoError(t, err)
	assert.True(t, exists)
}

func primaryImages(t *testing.T, db *gorm.DB, productID string) []domain.ProductImage {
	t.Helper()
	var images []domain.ProductImage
	require.NoError(t, db.Where("product_id = ? AND is_primary = ?", productID, true).Find(&images).Error)
	return images
}

func TestProductRepository_AddImagesAppends(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db, logger.NewNop())

	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	bare := createProduct(t, repo, seller.ID, "bare", "10", domain.ProductDraft)

	created, err := repo.AddImages(ctx, bare.ID, []domain.ImageInput{{URL: "1.jpg"}, {URL: "2.jpg"}})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.True(t, created[0].IsPrimary)
	assert.False(t, created[1].IsPrimary)
	assert.Equal(t, 0, created[0].DisplayOrder)
	assert.Equal(t, 1, created[1].DisplayOrder)

	more, err := repo.AddImages(ctx, bare.ID, []domain.ImageInput{{URL: "3.jpg"}})
	require.NoError(t, err)
	require.Len(t, more, 1)
	assert.False(t, more[0].IsPrimary)
	assert.Equal(t, 2, more[0].DisplayOrder)
	assert.Len(t, primaryImages(t, db, bare.ID), 1)
}

func TestProductRepository_DeletePrimaryPromotesNext(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db, logger.NewNop())

	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	product := createProduct(t, repo, seller.ID, "gallery", "10", domain.ProductActive, "a.jpg", "b.jpg", "c.jpg")
	primary := product.Images[0]

	require.NoError(t, repo.DeleteImage(ctx, product.ID, primary.ID))

	promoted := primaryImages(t, db, product.ID)
	require.Len(t, promoted, 1)
	assert.Equal(t, "b.jpg", promoted[0].URL)

	err := repo.DeleteImage(ctx, product.ID, primary.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductRepository_IncrementViews(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db, logger.NewNop())

	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	product := createProduct(t, repo, seller.ID, "viewed", "10", domain.ProductActive)

	require.NoError(t, repo.IncrementViews(ctx, product.ID))
	require.NoError(t, repo.IncrementViews(ctx, product.ID))

	stored, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ViewsCount)
}

func TestProductRepository_SearchAndStableOrder(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepository(db, logger.NewNop())

	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	createProduct(t, repo, seller.ID, "mug_blue", "10.00", domain.ProductActive)
	createProduct(t, repo, seller.ID, "mugxblue", "10.00", domain.ProductActive)
	createProduct(t, repo, seller.ID, "plate", "10.00", domain.ProductActive)

	_, total, err := repo.List(ctx, domain.ProductFilter{
		PageRequest: domain.PageRequest{Page: 1, Limit: 10},
		Search:      "g_b",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = repo.List(ctx, domain.ProductFilter{
		PageRequest: domain.PageRequest{Page: 1, Limit: 10},
		Search:      "%",
	})
	require.NoError(t, err)
	assert.Zero(t, total)

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		products, _, err := repo.List(ctx, domain.ProductFilter{
			PageRequest: domain.PageRequest{Page: page, Limit: 1},
			SortBy:      domain.SortPrice,
		})
		require.NoError(t, err)
		require.Len(t, products, 1)
		seen[products[0].ID] = true
	}
	assert.Len(t, seen, 3)
}
