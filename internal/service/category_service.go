package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/slug"
)

type CategoryService struct {
	repo   domain.CategoryRepository
	logger logger.Logger
	now    func() time.Time
}

func NewCategoryService(repo domain.CategoryRepository, logger logger.Logger) domain.CategoryService {
	return &CategoryService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *CategoryService) GetCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.list(ctx, false)
}

func (s *CategoryService) GetRootCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.list(ctx, true)
}

func (s *CategoryService) list(ctx context.Context, rootsOnly bool) ([]*domain.Category, error) {
	categories, err := s.repo.FindActive(ctx, rootsOnly)
	if err != nil {
		return nil, err
	}
	if err := s.attachCounts(ctx, categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, identifier string) (*domain.Category, error) {
	category, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrCategoryNotFound
	}
	if err := s.attachCounts(ctx, []*domain.Category{category}); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, input domain.CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("Category name is required", domain.FieldError{Field: "name", Message: "required"})
	}

	if input.ParentID != nil && *input.ParentID != "" {
		parent, err := s.repo.FindByIdentifier(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.NewValidationError("Parent category not found", domain.FieldError{Field: "parentId", Message: "does not exist"})
		}
		input.ParentID = &parent.ID
	} else {
		input.ParentID = nil
	}

	base := slug.Make(name)
	if base == "" {
		base = "category"
	}
	categorySlug, err := uniqueSlug(ctx, base, s.now, s.repo.SlugExists)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{
		Name:         name,
		Slug:         categorySlug,
		Description:  strings.TrimSpace(input.Description),
		ImageURL:     input.ImageURL,
		ParentID:     input.ParentID,
		DisplayOrder: input.DisplayOrder,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("Category slug already exists")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Category created", map[string]interface{}{"category_id": category.ID, "slug": category.Slug})
	return category, nil
}

// attachCounts sets ProductCount on categories and their children.
func (s *CategoryService) attachCounts(ctx context.Context, categories []*domain.Category) error {
	var ids []string
	for _, c := range categories {
		ids = append(ids, c.ID)
		for _, child := range c.Children {
			ids = append(ids, child.ID)
		}
	}
	counts, err := s.repo.CountProducts(ctx, ids)
	if err != nil {
		return err
	}
	for _, c := range categories {
		c.ProductCount = counts[c.ID]
		for _, child := range c.Children {
			child.ProductCount = counts[child.ID]
		}
	}
	return nil
}

// uniqueSlug returns base when free and base plus a millisecond suffix
// otherwise.
func uniqueSlug(ctx context.Context, base string, now func() time.Time, exists func(context.Context, string) (bool, error)) (string, error) {
	taken, err := exists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("slug lookup failed: %w", err)
	}
	if !taken {
		return base, nil
	}
	return slug.WithSuffix(base, now()), nil
}
