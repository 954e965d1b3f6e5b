package service

import (
	"context"
	"strings"

	"shop-api/internal/models"
	"shop-api/internal/store"
	"shop-api/internal/util"
)

// CatalogService is the read-only catalog surface
type CatalogService struct {
	store *store.Store
}

func NewCatalogService(store *store.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListCategories")
	defer span.End()

	return s.store.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, slug string) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetCategory")
	defer span.End()

	return s.store.GetCategoryBySlug(ctx, slug)
}

// ListCategoryProducts returns the active products of an existing category
func (s *CatalogService) ListCategoryProducts(ctx context.Context, slug string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListCategoryProducts")
	defer span.End()

	if _, err := s.store.GetCategoryBySlug(ctx, slug); err != nil {
		return nil, err
	}
	return s.store.ListProducts(ctx, store.ProductFilter{CategorySlug: slug})
}

// ListProducts lists active products. Unknown orderings fall back to newest first.
func (s *CatalogService) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	f.CategorySlug = strings.TrimSpace(f.CategorySlug)
	f.Query = strings.TrimSpace(f.Query)
	return s.store.ListProducts(ctx, f)
}

// SearchProducts matches name or description; a blank query matches nothing.
func (s *CatalogService) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SearchProducts")
	defer span.End()

	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Product{}, nil
	}
	return s.store.ListProducts(ctx, store.ProductFilter{Query: q})
}

func (s *CatalogService) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	return s.store.GetProductBySlug(ctx, slug)
}
