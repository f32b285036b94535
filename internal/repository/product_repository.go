package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewProductRepository(db *gorm.DB, logger logger.Logger) domain.ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProductRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Category")
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProductRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Product, error) {
	return r.first(ctx, "id = ? OR slug = ?", identifier, identifier)
}

func (r *ProductRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.Product, error) {
	var product domain.Product
	if err := r.withRelations(ctx).Where(query, args...).First(&product).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		r.logger.Error("Product lookup failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("find product: %w", err)
	}
	if err := attachSellers(ctx, r.db, []*domain.Product{&product}); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if !filter.AnyStatus && filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := containsPattern(s)
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	var products []*domain.Product
	err := q.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		Preload("Category").
		Order(filter.OrderClause()).
		Limit(filter.Limit).
		Offset(filter.Offset()).
		Find(&products).Error
	if err != nil {
		r.logger.Error("Failed to list products", map[string]interface{}{"error": err.Error()})
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if err := attachSellers(ctx, r.db, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return count > 0, nil
}

// Create inserts the product together with its images and variants.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Category").Create(product).Error
	})
	if err != nil {
		err = translate(err)
		if err != ErrDuplicate {
			r.logger.Error("Failed to create product", map[string]interface{}{"seller_id": product.SellerID, "error": err.Error()})
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("update product: %w", translate(err))
	}
	return nil
}

func (r *ProductRepository) IncrementViews(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment product views: %w", err)
	}
	return nil
}

// AddImages appends images after the current highest display order. The first
// appended image becomes primary only when the product had no images.
func (r *ProductRepository) AddImages(ctx context.Context, productID string, images []domain.ImageInput) ([]domain.ProductImage, error) {
	var created []domain.ProductImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stats struct {
			Total    int64
			MaxOrder *int
		}
		err := tx.Model(&domain.ProductImage{}).
			Select("COUNT(*) AS total, MAX(display_order) AS max_order").
			Where("product_id = ?", productID).
			Scan(&stats).Error
		if err != nil {
			return err
		}

		next := 0
		if stats.MaxOrder != nil {
			next = *stats.MaxOrder + 1
		}
		created = make([]domain.ProductImage, 0, len(images))
		for i, img := range images {
			created = append(created, domain.ProductImage{
				ProductID:    productID,
				URL:          img.URL,
				PublicID:     img.PublicID,
				AltText:      img.AltText,
				DisplayOrder: next + i,
				IsPrimary:    stats.Total == 0 && i == 0,
			})
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		r.logger.Error("Failed to add product images", map[string]interface{}{"product_id": productID, "error": err.Error()})
		return nil, fmt.Errorf("add product images: %w", err)
	}
	return created, nil
}

// DeleteImage removes one image of a product. When it was primary the next
// image by display order is promoted.
func (r *ProductRepository) DeleteImage(ctx context.Context, productID, imageID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image domain.ProductImage
		if err := tx.Where("id = ? AND product_id = ?", imageID, productID).First(&image).Error; err != nil {
			if notFound(err) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&image).Error; err != nil {
			return err
		}
		if !image.IsPrimary {
			return nil
		}

		var next domain.ProductImage
		err := tx.Where("product_id = ?", productID).Order("display_order ASC").First(&next).Error
		if notFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).UpdateColumn("is_primary", true).Error
	})
	if err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}
	return nil
}

// attachSellers fills the public seller projection for each product.
func attachSellers(ctx context.Context, db *gorm.DB, products []*domain.Product) error {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.SellerID)
	}
	summaries, err := userSummaries(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, p := range products {
		p.Seller = summaries[p.SellerID]
	}
	return nil
}

func userSummaries(ctx context.Context, db *gorm.DB, ids []string) (map[string]*domain.UserSummary, error) {
	out := make(map[string]*domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*domain.UserSummary
	err := db.WithContext(ctx).Model(&domain.User{}).
		Select("id, username, full_name, avatar_url").
		Where("id IN ?", uniqueStrings(ids)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load user summaries: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
