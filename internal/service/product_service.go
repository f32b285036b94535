package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/slug"
)

const maxProductImages = 10

var errPublishGuard = domain.NewValidationError("Product needs at least one image and a description before it can be published",
	domain.FieldError{Field: "images", Message: "at least one image required"},
	domain.FieldError{Field: "description", Message: "required"},
)

type ProductService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	logger     logger.Logger
	now        func() time.Time
}

func NewProductService(products domain.ProductRepository, categories domain.CategoryRepository, logger logger.Logger) domain.ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ProductService) GetProducts(ctx context.Context, filter domain.ProductFilter) (_ *domain.Page[*domain.Product], err error) {
	defer observe("list", "product", time.Now(), &err)

	if filter.Status == "" && !filter.AnyStatus {
		filter.Status = domain.ProductActive
	}
	return s.list(ctx, filter)
}

func (s *ProductService) GetMyProducts(ctx context.Context, sellerID string, filter domain.ProductFilter) (*domain.Page[*domain.Product], error) {
	filter.SellerID = sellerID
	filter.AnyStatus = filter.Status == ""
	return s.list(ctx, filter)
}

func (s *ProductService) list(ctx context.Context, filter domain.ProductFilter) (*domain.Page[*domain.Product], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("Invalid status filter", domain.FieldError{Field: "status", Message: "unknown status"})
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, domain.NewValidationError("minPrice cannot exceed maxPrice", domain.FieldError{Field: "minPrice", Message: "greater than maxPrice"})
	}
	filter.PageRequest = filter.PageRequest.Normalize()

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*domain.Product{}
	}
	return &domain.Page[*domain.Product]{
		Data:       products,
		Pagination: domain.NewPagination(filter.PageRequest, total),
	}, nil
}

// GetProduct resolves by id or slug and counts the view.
func (s *ProductService) GetProduct(ctx context.Context, identifier string) (*domain.Product, error) {
	product, err := s.products.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if err := s.products.IncrementViews(ctx, product.ID); err != nil {
		return nil, err
	}
	product.ViewsCount++
	return product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, sellerID string, input domain.ProductInput) (_ *domain.Product, err error) {
	defer observe("create", "product", time.Now(), &err)

	title := strings.TrimSpace(input.Title)
	if fields := validateProductInput(title, input); len(fields) > 0 {
		return nil, domain.NewValidationError("Invalid product", fields...)
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	base := slug.Make(title)
	if base == "" {
		base = "product"
	}
	productSlug, err := uniqueSlug(ctx, base, s.now, s.products.SlugExists)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		SellerID:       sellerID,
		CategoryID:     nonEmpty(input.CategoryID),
		Title:          title,
		Slug:           productSlug,
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		Stock:          input.Stock,
		SKU:            nonEmpty(input.SKU),
		Status:         domain.ProductDraft,
	}
	for i, img := range input.Images {
		product.Images = append(product.Images, domain.ProductImage{
			URL:          img.URL,
			PublicID:     img.PublicID,
			AltText:      img.AltText,
			DisplayOrder: i,
			IsPrimary:    i == 0,
		})
	}
	for _, v := range input.Variants {
		product.Variants = append(product.Variants, domain.ProductVariant{
			Name:    strings.TrimSpace(v.Name),
			SKU:     nonEmpty(v.SKU),
			Price:   v.Price,
			Stock:   v.Stock,
			Options: domain.StringArray(v.Options),
		})
	}

	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("Product SKU or slug already exists")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Product created", map[string]interface{}{"product_id": product.ID, "seller_id": sellerID})
	return s.reload(ctx, product.ID)
}

func validateProductInput(title string, input domain.ProductInput) []domain.FieldError {
	var fields []domain.FieldError
	if title == "" {
		fields = append(fields, domain.FieldError{Field: "title", Message: "required"})
	}
	if input.Price.IsNegative() {
		fields = append(fields, domain.FieldError{Field: "price", Message: "must not be negative"})
	}
	if input.CompareAtPrice != nil && input.CompareAtPrice.IsNegative() {
		fields = append(fields, domain.FieldError{Field: "compareAtPrice", Message: "must not be negative"})
	}
	if input.Stock < 0 {
		fields = append(fields, domain.FieldError{Field: "stock", Message: "must not be negative"})
	}
	if len(input.Images) > maxProductImages {
		fields = append(fields, domain.FieldError{Field: "images", Message: "at most 10 images"})
	}
	for _, v := range input.Variants {
		if strings.TrimSpace(v.Name) == "" || v.Price.IsNegative() || v.Stock < 0 {
			fields = append(fields, domain.FieldError{Field: "variants", Message: "each variant needs a name, a price and a stock that are not negative"})
			break
		}
	}
	return fields
}

func (s *ProductService) UpdateProduct(ctx context.Context, id, callerID string, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	var invalid []domain.FieldError

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			invalid = append(invalid, domain.FieldError{Field: "title", Message: "required"})
		} else {
			fields["title"] = title
		}
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
		fields["description"] = product.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			invalid = append(invalid, domain.FieldError{Field: "price", Message: "must not be negative"})
		} else {
			fields["price"] = *patch.Price
		}
	}
	switch {
	case patch.ClearCompareAtPrice:
		fields["compare_at_price"] = nil
	case patch.CompareAtPrice != nil:
		fields["compare_at_price"] = *patch.CompareAtPrice
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			invalid = append(invalid, domain.FieldError{Field: "stock", Message: "must not be negative"})
		} else {
			fields["stock"] = *patch.Stock
		}
	}
	switch {
	case patch.ClearCategory:
		fields["category_id"] = nil
	case patch.CategoryID != nil:
		if err := s.checkCategory(ctx, patch.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *patch.CategoryID
	}
	if len(invalid) > 0 {
		return nil, domain.NewValidationError("Invalid product", invalid...)
	}

	if patch.Status != nil && *patch.Status != product.Status {
		if err := s.checkTransition(product, *patch.Status); err != nil {
			return nil, err
		}
		fields["status"] = *patch.Status
	}

	if err := s.products.Update(ctx, product.ID, fields); err != nil {
		return nil, err
	}
	return s.reload(ctx, product.ID)
}

// DeleteProduct archives the product; rows are never removed.
func (s *ProductService) DeleteProduct(ctx context.Context, id, callerID string) error {
	product, err := s.owned(ctx, id, callerID)
	if err != nil {
		return err
	}
	if product.Status == domain.ProductArchived {
		return nil
	}
	if err := s.checkTransition(product, domain.ProductArchived); err != nil {
		return err
	}
	if err := s.products.Update(ctx, product.ID, map[string]interface{}{"status": domain.ProductArchived}); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Product archived", map[string]interface{}{"product_id": product.ID})
	return nil
}

func (s *ProductService) PublishProduct(ctx context.Context, id, callerID string) (*domain.Product, error) {
	product, err := s.owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if product.Status == domain.ProductActive {
		return product, nil
	}
	if err := s.checkTransition(product, domain.ProductActive); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product.ID, map[string]interface{}{"status": domain.ProductActive}); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Product published", map[string]interface{}{"product_id": product.ID})
	return s.reload(ctx, product.ID)
}

func (s *ProductService) AddProductImages(ctx context.Context, id, callerID string, images []domain.ImageInput) ([]domain.ProductImage, error) {
	product, err := s.owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.NewValidationError("No images provided", domain.FieldError{Field: "images", Message: "required"})
	}
	if len(product.Images)+len(images) > maxProductImages {
		return nil, domain.NewValidationError("A product can have at most 10 images", domain.FieldError{Field: "images", Message: "too many images"})
	}
	for _, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			return nil, domain.NewValidationError("Image url is required", domain.FieldError{Field: "images", Message: "url required"})
		}
	}
	return s.products.AddImages(ctx, product.ID, images)
}

func (s *ProductService) DeleteProductImage(ctx context.Context, id, imageID, callerID string) error {
	product, err := s.owned(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := s.products.DeleteImage(ctx, product.ID, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrImageNotFound
		}
		return err
	}
	return nil
}

// checkTransition applies the status table, plus the publish guard on any
// move into ACTIVE.
func (s *ProductService) checkTransition(product *domain.Product, next domain.ProductStatus) error {
	if !next.Valid() {
		return domain.NewValidationError("Invalid status", domain.FieldError{Field: "status", Message: "unknown status"})
	}
	if !product.Status.CanTransitionTo(next) {
		return domain.NewValidationError("Cannot change status from " + string(product.Status) + " to " + string(next))
	}
	if next == domain.ProductActive && !product.HasPublishableContent() {
		return errPublishGuard
	}
	return nil
}

func (s *ProductService) owned(ctx context.Context, id, callerID string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if product.SellerID != callerID {
		return nil, domain.NewForbiddenError("You can only modify your own products")
	}
	return product, nil
}

func (s *ProductService) checkCategory(ctx context.Context, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	category, err := s.categories.FindByIdentifier(ctx, *categoryID)
	if err != nil {
		return err
	}
	if category == nil || category.ID != *categoryID {
		return domain.NewValidationError("Category not found", domain.FieldError{Field: "categoryId", Message: "does not exist"})
	}
	return nil
}

func (s *ProductService) reload(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

