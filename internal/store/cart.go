package store

import (
	"context"
	"fmt"

	"shop-api/internal/models"

	"github.com/jmoiron/sqlx"
)

const cartColumns = `id, user_id, product_id, quantity, created_at`

// UpsertCartLine adds quantity to the owner's line for the product, creating it if absent.
// The merge is a single statement so concurrent adds never produce duplicate lines.
func (s *Store) UpsertCartLine(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`
		INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
		RETURNING id`),
		userID, productID, quantity, now())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return s.GetCartLine(ctx, userID, id)
}

// GetCartLine retrieves one of the owner's lines with its product
func (s *Store) GetCartLine(ctx context.Context, userID, lineID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line, s.db.Rebind(
		"SELECT "+cartColumns+" FROM cart_items WHERE id = ? AND user_id = ?"), lineID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	lines := []models.CartLine{line}
	if err := attachProducts(ctx, s.db, lines); err != nil {
		return nil, err
	}
	return &lines[0], nil
}

// ListCartLines returns the owner's lines, oldest first, with current product data
func (s *Store) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return listCartLines(ctx, s.db, userID)
}

// UpdateCartLineQuantity sets the quantity of one of the owner's lines
func (s *Store) UpdateCartLineQuantity(ctx context.Context, userID, lineID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?"), quantity, lineID, userID)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCartLine removes one of the owner's lines
func (s *Store) DeleteCartLine(ctx context.Context, userID, lineID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"DELETE FROM cart_items WHERE id = ? AND user_id = ?"), lineID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func listCartLines(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := sqlx.SelectContext(ctx, q, &lines, q.Rebind(
		"SELECT "+cartColumns+" FROM cart_items WHERE user_id = ? ORDER BY created_at, id"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	if err := attachProducts(ctx, q, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func attachProducts(ctx context.Context, q sqlx.ExtContext, lines []models.CartLine) error {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := getProductsByIDs(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range lines {
		lines[i].Product = products[lines[i].ProductID]
	}
	return nil
}
