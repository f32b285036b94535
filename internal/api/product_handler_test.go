package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
)

type productPage struct {
	Data       []domain.Product  `json:"data"`
	Pagination domain.Pagination `json:"pagination"`
}

func TestProductHandler_Lifecycle(t *testing.T) {
	srv := newTestServer(t)
	sellerToken, _ := srv.tokenFor(t, "seller", domain.RoleSeller)
	buyerToken, _ := srv.tokenFor(t, "buyer", domain.RoleBuyer)

	body := map[string]interface{}{
		"title":       "Vintage Lamp",
		"description": "Brass, works",
		"price":       "49.90",
		"stock":       2,
	}

	rec := srv.do(t, http.MethodPost, "/api/products", body, buyerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/products", body, sellerToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product domain.Product
	decodeData(t, rec, &product)
	assert.Equal(t, domain.ProductDraft, product.Status)
	assert.Equal(t, "vintage-lamp", product.Slug)

	rec = srv.do(t, http.MethodPost, "/api/products/"+product.ID+"/publish", nil, sellerToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	images := map[string]interface{}{"images": []map[string]string{{"url": "https://media.test/lamp.jpg"}}}
	rec = srv.do(t, http.MethodPost, "/api/products/"+product.ID+"/images", images, buyerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/products/"+product.ID+"/images", images, sellerToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/products/"+product.ID+"/publish", nil, sellerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &product)
	assert.Equal(t, domain.ProductActive, product.Status)

	rec = srv.do(t, http.MethodGet, "/api/products?sortBy=price&sortOrder=asc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page productPage
	decodeData(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	rec = srv.do(t, http.MethodGet, "/api/products/vintage-lamp", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &product)
	assert.Equal(t, int64(1), product.ViewsCount)
	require.NotNil(t, product.Seller)
	assert.Equal(t, "seller", product.Seller.Username)

	rec = srv.do(t, http.MethodDelete, "/api/products/"+product.ID, nil, sellerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product archived", decode(t, rec).Message)

	rec = srv.do(t, http.MethodGet, "/api/products/my", nil, sellerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, domain.ProductArchived, page.Data[0].Status)
}

func TestProductHandler_QueryValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/products?sortBy=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/products?minPrice=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/products/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", decode(t, rec).Message)
}

func TestCategoryHandler_AdminOnlyCreate(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := srv.tokenFor(t, "admin", domain.RoleAdmin)
	sellerToken, _ := srv.tokenFor(t, "seller", domain.RoleSeller)

	body := map[string]interface{}{"name": "Home Decor"}
	rec := srv.do(t, http.MethodPost, "/api/categories", body, sellerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/categories", body, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var category domain.Category
	decodeData(t, rec, &category)
	assert.Equal(t, "home-decor", category.Slug)

	rec = srv.do(t, http.MethodGet, "/api/categories/root", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var roots []domain.Category
	decodeData(t, rec, &roots)
	assert.Len(t, roots, 1)

	rec = srv.do(t, http.MethodGet, "/api/categories/home-decor", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
