package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

type ProductHandler struct {
	service domain.ProductService
	auth    *middleware.Authenticator
	logger  logger.Logger
}

func NewProductHandler(service domain.ProductService, auth *middleware.Authenticator, logger logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

type imageRequest struct {
	URL      string `json:"url" validate:"required,url"`
	PublicID string `json:"publicId" validate:"max=255"`
	AltText  string `json:"altText" validate:"max=255"`
}

type variantRequest struct {
	Name    string          `json:"name" validate:"required,max=100"`
	SKU     *string         `json:"sku" validate:"omitempty,max=100"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock" validate:"min=0"`
	Options []string        `json:"options" validate:"max=20,dive,max=100"`
}

type createProductRequest struct {
	Title          string           `json:"title" validate:"required,max=255"`
	Description    string           `json:"description" validate:"max=10000"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	Stock          int              `json:"stock" validate:"min=0"`
	SKU            *string          `json:"sku" validate:"omitempty,max=100"`
	CategoryID     *string          `json:"categoryId"`
	Images         []imageRequest   `json:"images" validate:"max=10,dive"`
	Variants       []variantRequest `json:"variants" validate:"max=50,dive"`
}

type updateProductRequest struct {
	Title          *string          `json:"title" validate:"omitempty,max=255"`
	Description    *string          `json:"description" validate:"omitempty,max=10000"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	ClearCompareAt bool             `json:"clearCompareAtPrice"`
	Stock          *int             `json:"stock" validate:"omitempty,min=0"`
	CategoryID     *string          `json:"categoryId"`
	ClearCategory  bool             `json:"clearCategory"`
	Status         *string          `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE OUT_OF_STOCK ARCHIVED"`
}

type addImagesRequest struct {
	Images []imageRequest `json:"images" validate:"required,min=1,max=10,dive"`
}

func (h *ProductHandler) filterFromQuery(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		PageRequest: pageFromQuery(r),
		CategoryID:  q.Get("categoryId"),
		SellerID:    q.Get("sellerId"),
		Status:      domain.ProductStatus(strings.ToUpper(q.Get("status"))),
		Search:      q.Get("search"),
		SortDesc:    !strings.EqualFold(q.Get("sortOrder"), "asc"),
	}

	switch sortBy := domain.ProductSort(q.Get("sortBy")); sortBy {
	case "", domain.SortCreatedAt, domain.SortPrice, domain.SortViews, domain.SortTitle:
		filter.SortBy = sortBy
	default:
		return filter, domain.NewValidationError("Invalid sortBy", domain.FieldError{Field: "sortBy", Message: "must be one of: createdAt price viewsCount title"})
	}

	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"minPrice", &filter.MinPrice}, {"maxPrice", &filter.MaxPrice}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, domain.NewValidationError("Invalid "+p.name, domain.FieldError{Field: p.name, Message: "must be a number"})
		}
		*p.dst = &d
	}
	return filter, nil
}

func (h *ProductHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	page, err := h.service.GetProducts(r.Context(), filter)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", page)
}

func (h *ProductHandler) GetMyProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	page, err := h.service.GetMyProducts(r.Context(), middleware.UserID(r.Context()), filter)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", page)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "", product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	input := domain.ProductInput{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		CompareAtPrice: req.CompareAtPrice,
		Stock:          req.Stock,
		SKU:            req.SKU,
		CategoryID:     req.CategoryID,
		Images:         toImageInputs(req.Images),
	}
	for _, v := range req.Variants {
		input.Variants = append(input.Variants, domain.VariantInput{
			Name:    v.Name,
			SKU:     v.SKU,
			Price:   v.Price,
			Stock:   v.Stock,
			Options: v.Options,
		})
	}

	product, err := h.service.CreateProduct(r.Context(), middleware.UserID(r.Context()), input)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.Created(w, "Product created", product)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	patch := domain.ProductPatch{
		Title:               req.Title,
		Description:         req.Description,
		Price:               req.Price,
		CompareAtPrice:      req.CompareAtPrice,
		ClearCompareAtPrice: req.ClearCompareAt,
		Stock:               req.Stock,
		CategoryID:          req.CategoryID,
		ClearCategory:       req.ClearCategory,
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		patch.Status = &status
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()), patch)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Product updated", product)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context())); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Product archived", nil)
}

func (h *ProductHandler) PublishProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.PublishProduct(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Product published", product)
}

func (h *ProductHandler) AddProductImages(w http.ResponseWriter, r *http.Request) {
	var req addImagesRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	images, err := h.service.AddProductImages(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()), toImageInputs(req.Images))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.Created(w, "Images added", images)
}

func (h *ProductHandler) DeleteProductImage(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProductImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "imageId"), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.OK(w, "Image deleted", nil)
}

func toImageInputs(in []imageRequest) []domain.ImageInput {
	out := make([]domain.ImageInput, 0, len(in))
	for _, img := range in {
		out = append(out, domain.ImageInput{URL: img.URL, PublicID: img.PublicID, AltText: img.AltText})
	}
	return out
}

func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.GetProducts)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireAuth)
			r.With(middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin)).Get("/my", h.GetMyProducts)
			r.With(middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin)).Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
			r.Post("/{id}/publish", h.PublishProduct)
			r.Post("/{id}/images", h.AddProductImages)
			r.Delete("/{id}/images/{imageId}", h.DeleteProductImage)
		})

		r.Get("/{identifier}", h.GetProduct)
	})
}
