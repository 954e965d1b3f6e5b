package store

import (
	"context"
	"fmt"

	"shop-api/internal/models"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, order_number, user_id, status, delivery_address_id, subtotal, shipping_cost,
	discount, total, payment_method, notes, idempotency_key, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, product_name, quantity, price, total`

// LockUser takes the per-owner row lock that serialises checkouts for one user
func (t *Tx) LockUser(ctx context.Context, userID int64) error {
	var id int64
	err := t.tx.GetContext(ctx, &id, t.tx.Rebind("SELECT id FROM users WHERE id = ?"+forUpdate(t.driver)), userID)
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", notFound(err))
	}
	return nil
}

// LockAddress re-reads the owner's address inside the transaction so a concurrent
// delete cannot slip in before the order references it
func (t *Tx) LockAddress(ctx context.Context, userID, addressID int64) error {
	var id int64
	err := t.tx.GetContext(ctx, &id, t.tx.Rebind(
		"SELECT id FROM addresses WHERE id = ? AND user_id = ?"+forUpdate(t.driver)), addressID, userID)
	if err != nil {
		return notFound(err)
	}
	return nil
}

// GetOrderByIdempotencyKey returns the owner's order for key, or nil when none exists
func (t *Tx) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order, t.tx.Rebind(
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? AND idempotency_key = ?"), userID, key)
	if err = notFound(err); err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListCartLines reads the owner's cart inside the transaction
func (t *Tx) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return listCartLines(ctx, t.tx, userID)
}

// CreateOrder inserts the order header
func (t *Tx) CreateOrder(ctx context.Context, order *models.Order) error {
	ts := now()
	order.CreatedAt, order.UpdatedAt = ts, ts
	err := t.tx.GetContext(ctx, &order.ID, t.tx.Rebind(`
		INSERT INTO orders (order_number, user_id, status, delivery_address_id, subtotal, shipping_cost,
			discount, total, payment_method, notes, idempotency_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		order.OrderNumber, order.UserID, order.Status, order.DeliveryAddressID, order.Subtotal,
		order.ShippingCost, order.Discount, order.Total, order.PaymentMethod, order.Notes,
		order.IdempotencyKey, order.CreatedAt, order.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// CreateOrderItem inserts one snapshot line
func (t *Tx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	err := t.tx.GetContext(ctx, &item.ID, t.tx.Rebind(`
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, total)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Total)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

// ClearCart deletes every line of the owner's cart
func (t *Tx) ClearCart(ctx context.Context, userID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind("DELETE FROM cart_items WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return res.RowsAffected()
}

// GetOrder loads a full order (items and address) inside the transaction
func (t *Tx) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return getOrder(ctx, t.tx, userID, orderID)
}

// GetOrderForUser loads one of the owner's orders with items and delivery address
func (s *Store) GetOrderForUser(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return getOrder(ctx, s.db, userID, orderID)
}

// ListOrdersByUser returns the owner's orders, newest first, with items and addresses
func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, s.db.Rebind(
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	for i := range orders {
		if err := hydrateOrder(ctx, s.db, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func getOrder(ctx context.Context, q sqlx.ExtContext, userID, orderID int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, q, &order, q.Rebind(
		"SELECT "+orderColumns+" FROM orders WHERE id = ? AND user_id = ?"), orderID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := hydrateOrder(ctx, q, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func hydrateOrder(ctx context.Context, q sqlx.ExtContext, order *models.Order) error {
	items := []models.OrderItem{}
	err := sqlx.SelectContext(ctx, q, &items, q.Rebind(
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = ? ORDER BY id"), order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	order.Items = items

	order.DeliveryAddress = nil
	if order.DeliveryAddressID != nil {
		addr, err := getAddress(ctx, q, order.UserID, *order.DeliveryAddressID)
		if err != nil && err != ErrNotFound {
			return err
		}
		order.DeliveryAddress = addr
	}
	return nil
}
