package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/testutil"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

func newTestProductService(t *testing.T) (*ProductService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewProductService(
		repository.NewProductRepository(db, logger.NewNop()),
		repository.NewCategoryRepository(db, logger.NewNop()),
		logger.NewNop(),
	).(*ProductService)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, db
}

func lampInput() domain.ProductInput {
	return domain.ProductInput{
		Title:       "Desk Lamp",
		Description: "A warm light",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       3,
		Images:      []domain.ImageInput{{URL: "https://img/1.jpg"}, {URL: "https://img/2.jpg"}},
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	product, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)
	assert.Equal(t, domain.ProductDraft, product.Status)
	assert.Equal(t, "desk-lamp", product.Slug)
	require.Len(t, product.Images, 2)
	assert.True(t, product.Images[0].IsPrimary)
	assert.False(t, product.Images[1].IsPrimary)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("19.99")))

	again, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)
	assert.Equal(t, "desk-lamp-1700000000000", again.Slug)
}

func TestProductService_CreateProductValidation(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	input := lampInput()
	input.Title = "  "
	input.Price = decimal.NewFromInt(-1)
	_, err := svc.CreateProduct(ctx, seller.ID, input)
	require.True(t, domain.IsKind(err, domain.KindValidation))

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Fields, 2)

	missing := "nope"
	input = lampInput()
	input.CategoryID = &missing
	_, err = svc.CreateProduct(ctx, seller.ID, input)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestProductService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)
	intruder := testutil.CreateUser(t, db, "intruder", domain.RoleSeller)

	product, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)

	title := "Stolen"
	_, err = svc.UpdateProduct(ctx, product.ID, intruder.ID, domain.ProductPatch{Title: &title})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	assert.True(t, domain.IsKind(svc.DeleteProduct(ctx, product.ID, intruder.ID), domain.KindForbidden))

	_, err = svc.PublishProduct(ctx, "missing", seller.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_PublishGuard(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	input := lampInput()
	input.Images = nil
	product, err := svc.CreateProduct(ctx, seller.ID, input)
	require.NoError(t, err)

	_, err = svc.PublishProduct(ctx, product.ID, seller.ID)
	assert.ErrorIs(t, err, errPublishGuard)

	_, err = svc.AddProductImages(ctx, product.ID, seller.ID, []domain.ImageInput{{URL: "https://img/a.jpg"}})
	require.NoError(t, err)

	published, err := svc.PublishProduct(ctx, product.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductActive, published.Status)

	again, err := svc.PublishProduct(ctx, product.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductActive, again.Status)
}

func TestProductService_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	product, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)

	outOfStock := domain.ProductOutOfStock
	_, err = svc.UpdateProduct(ctx, product.ID, seller.ID, domain.ProductPatch{Status: &outOfStock})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	blank := ""
	active := domain.ProductActive
	_, err = svc.UpdateProduct(ctx, product.ID, seller.ID, domain.ProductPatch{Description: &blank, Status: &active})
	assert.ErrorIs(t, err, errPublishGuard)

	updated, err := svc.UpdateProduct(ctx, product.ID, seller.ID, domain.ProductPatch{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductActive, updated.Status)

	updated, err = svc.UpdateProduct(ctx, product.ID, seller.ID, domain.ProductPatch{Status: &outOfStock})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductOutOfStock, updated.Status)
}

func TestProductService_DeleteArchives(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	product, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID, seller.ID))
	require.NoError(t, svc.DeleteProduct(ctx, product.ID, seller.ID))

	stored, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductArchived, stored.Status)

	active := domain.ProductActive
	_, err = svc.UpdateProduct(ctx, product.ID, seller.ID, domain.ProductPatch{Status: &active})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestProductService_ListingDefaults(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	draft, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)
	live, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)
	_, err = svc.PublishProduct(ctx, live.ID, seller.ID)
	require.NoError(t, err)

	public, err := svc.GetProducts(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, public.Data, 1)
	assert.Equal(t, live.ID, public.Data[0].ID)
	assert.Equal(t, domain.DefaultLimit, public.Pagination.Limit)

	mine, err := svc.GetMyProducts(ctx, seller.ID, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, mine.Data, 2)

	drafts, err := svc.GetMyProducts(ctx, seller.ID, domain.ProductFilter{Status: domain.ProductDraft})
	require.NoError(t, err)
	require.Len(t, drafts.Data, 1)
	assert.Equal(t, draft.ID, drafts.Data[0].ID)

	lo, hi := decimal.NewFromInt(50), decimal.NewFromInt(10)
	_, err = svc.GetProducts(ctx, domain.ProductFilter{MinPrice: &lo, MaxPrice: &hi})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestProductService_GetProductCountsViews(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	product, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)

	first, err := svc.GetProduct(ctx, product.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ViewsCount)

	second, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ViewsCount)

	_, err = svc.GetProduct(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_Images(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestProductService(t)
	seller := testutil.CreateUser(t, db, "seller", domain.RoleSeller)

	product, err := svc.CreateProduct(ctx, seller.ID, lampInput())
	require.NoError(t, err)

	many := make([]domain.ImageInput, 9)
	for i := range many {
		many[i] = domain.ImageInput{URL: "https://img/x.jpg"}
	}
	_, err = svc.AddProductImages(ctx, product.ID, seller.ID, many)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	err = svc.DeleteProductImage(ctx, product.ID, "missing", seller.ID)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	require.NoError(t, svc.DeleteProductImage(ctx, product.ID, product.Images[0].ID, seller.ID))
	reloaded, err := svc.reload(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Images, 1)
	assert.True(t, reloaded.Images[0].IsPrimary)
}
