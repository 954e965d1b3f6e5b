package store

import (
	"context"
	"fmt"
	"strings"

	"shop-api/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const productColumns = `p.id, p.name, p.slug, p.description, p.image, p.image_url, p.price,
	p.original_price, p.discount, p.category_id, p.stock, p.rating, p.reviews_count,
	p.is_active, p.created_at`

const categoryColumns = `id, name, slug, description, image, created_at`

// ProductFilter narrows a product listing. Zero values mean "no filter".
type ProductFilter struct {
	CategorySlug string
	Query        string
	Ordering     string
}

// orderings whitelists the sortable columns; the key is the public ordering name.
var orderings = map[string]string{
	"price":      "p.price",
	"name":       "p.name",
	"created_at": "p.created_at",
	"discount":   "p.discount",
}

// DefaultOrdering is used when no (or an unknown) ordering is requested
const DefaultOrdering = "-created_at"

// orderClause builds ORDER BY from a public ordering value, ties broken by id.
func orderClause(ordering string) string {
	desc := strings.HasPrefix(ordering, "-")
	col, ok := orderings[strings.TrimPrefix(ordering, "-")]
	if !ok {
		return orderClause(DefaultOrdering)
	}
	if desc {
		return fmt.Sprintf(" ORDER BY %s DESC, p.id DESC", col)
	}
	return fmt.Sprintf(" ORDER BY %s ASC, p.id ASC", col)
}

// likePattern escapes LIKE wildcards so the query matches literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// ListCategories returns all categories ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories,
		"SELECT "+categoryColumns+" FROM categories ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug retrieves a category by slug
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c,
		s.db.Rebind("SELECT "+categoryColumns+" FROM categories WHERE slug = ?"), slug)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListProducts returns active products matching the filter with their categories attached
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products p WHERE p.is_active = ?"
	args := []interface{}{true}

	if f.CategorySlug != "" {
		query += " AND p.category_id IN (SELECT id FROM categories WHERE slug = ?)"
		args = append(args, f.CategorySlug)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		lower := lowerFunc(s.driver)
		query += fmt.Sprintf(` AND (%[1]s(p.name) LIKE ? ESCAPE '\' OR %[1]s(p.description) LIKE ? ESCAPE '\')`, lower)
		pattern := likePattern(q)
		args = append(args, pattern, pattern)
	}
	query += orderClause(f.Ordering)

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if err := attachCategories(ctx, s.db, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductBySlug retrieves an active product by slug
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := s.db.GetContext(ctx, &p, s.db.Rebind(
		"SELECT "+productColumns+" FROM products p WHERE p.slug = ? AND p.is_active = ?"), slug, true)
	if err != nil {
		return nil, notFound(err)
	}
	products := []models.Product{p}
	if err := attachCategories(ctx, s.db, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetProductByID retrieves a product by ID regardless of its active flag
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.db.GetContext(ctx, &p, s.db.Rebind(
		"SELECT "+productColumns+" FROM products p WHERE p.id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// getProductsByIDs loads products keyed by id
func getProductsByIDs(ctx context.Context, q sqlx.ExtContext, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT "+productColumns+" FROM products p WHERE p.id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := sqlx.SelectContext(ctx, q, &products, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if err := attachCategories(ctx, q, products); err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func attachCategories(ctx context.Context, q sqlx.ExtContext, products []models.Product) error {
	seen := map[int64]bool{}
	var ids []int64
	for _, p := range products {
		if p.CategoryID != nil && !seen[*p.CategoryID] {
			seen[*p.CategoryID] = true
			ids = append(ids, *p.CategoryID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("SELECT "+categoryColumns+" FROM categories WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	var categories []models.Category
	if err := sqlx.SelectContext(ctx, q, &categories, q.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	byID := make(map[int64]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}
	for i := range products {
		if products[i].CategoryID != nil {
			products[i].Category = byID[*products[i].CategoryID]
		}
	}
	return nil
}

// CreateCategory inserts a category; used for seeding and tests
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	err := s.db.GetContext(ctx, &c.ID, s.db.Rebind(`
		INSERT INTO categories (name, slug, description, image, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		c.Name, c.Slug, c.Description, c.Image, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// CreateProduct inserts a product; used for seeding and tests
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	err := s.db.GetContext(ctx, &p.ID, s.db.Rebind(`
		INSERT INTO products (name, slug, description, image, image_url, price, original_price,
			discount, category_id, stock, rating, reviews_count, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		p.Name, p.Slug, p.Description, p.Image, p.ImageURL, p.Price, p.OriginalPrice,
		p.Discount, p.CategoryID, p.Stock, p.Rating, p.ReviewsCount, p.IsActive, p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateProductPrice changes the catalog price; existing order snapshots are unaffected
func (s *Store) UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE products SET price = ? WHERE id = ?"), price, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product; order items keep their snapshot with a null product
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM products WHERE id = ?"), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
