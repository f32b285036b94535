package repository

import (
	"context"
	"fmt"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"gorm.io/gorm"
)

const categoryOrder = "display_order ASC, name ASC"

type CategoryRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewCategoryRepository(db *gorm.DB, logger logger.Logger) domain.CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// FindActive loads active categories with their active immediate children.
func (r *CategoryRepository) FindActive(ctx context.Context, rootsOnly bool) ([]*domain.Category, error) {
	q := r.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(categoryOrder)
		}).
		Where("is_active = ?", true).
		Order(categoryOrder)
	if rootsOnly {
		q = q.Where("parent_id IS NULL")
	}

	var categories []*domain.Category
	if err := q.Find(&categories).Error; err != nil {
		r.logger.Error("Failed to list categories", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(categoryOrder)
		}).
		Where("id = ? OR slug = ?", identifier, identifier).
		First(&category).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// CountProducts returns the number of products per category id. Categories
// without products are absent from the map.
func (r *CategoryRepository) CountProducts(ctx context.Context, categoryIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CategoryID string
		Total      int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IN ?", categoryIDs).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count products per category: %w", err)
	}
	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}

func (r *CategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return count > 0, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if err := r.db.WithContext(ctx).Omit("Children").Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", translate(err))
	}
	return nil
}
