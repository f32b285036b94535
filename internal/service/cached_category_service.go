package service

import (
	"context"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/cache"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

// CachedCategoryService serves the category tree reads from a cache.
// Product counts may lag by up to cache.CategoryExpiration; creating a
// category drops the cached trees immediately.
type CachedCategoryService struct {
	next   domain.CategoryService
	cache  cache.Cache
	logger logger.Logger
}

func NewCachedCategoryService(next domain.CategoryService, c cache.Cache, logger logger.Logger) domain.CategoryService {
	return &CachedCategoryService{
		next:   next,
		cache:  c,
		logger: logger,
	}
}

func (s *CachedCategoryService) GetCategories(ctx context.Context) ([]*domain.Category, error) {
	return cache.CacheAside(ctx, s.cache, s.logger, cache.CategoryAllKey, cache.CategoryExpiration, s.next.GetCategories)
}

func (s *CachedCategoryService) GetRootCategories(ctx context.Context) ([]*domain.Category, error) {
	return cache.CacheAside(ctx, s.cache, s.logger, cache.CategoryRootsKey, cache.CategoryExpiration, s.next.GetRootCategories)
}

func (s *CachedCategoryService) GetCategory(ctx context.Context, identifier string) (*domain.Category, error) {
	return s.next.GetCategory(ctx, identifier)
}

func (s *CachedCategoryService) CreateCategory(ctx context.Context, input domain.CategoryInput) (*domain.Category, error) {
	category, err := s.next.CreateCategory(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidatePrefix(ctx, cache.CategoryPrefix); err != nil {
		s.logger.Warn("Failed to invalidate category cache", map[string]interface{}{"error": err.Error()})
	}
	return category, nil
}
