package store

import (
	"context"
	"fmt"

	"shop-api/internal/models"

	"github.com/jmoiron/sqlx"
)

const addressColumns = `id, user_id, full_name, phone, address, city, state, zip_code, country,
	address_type, is_default, lat, lng, created_at, updated_at`

// CreateAddress inserts an address for a.UserID
func (s *Store) CreateAddress(ctx context.Context, a *models.Address) error {
	ts := now()
	a.CreatedAt, a.UpdatedAt = ts, ts
	err := s.db.GetContext(ctx, &a.ID, s.db.Rebind(`
		INSERT INTO addresses (user_id, full_name, phone, address, city, state, zip_code, country,
			address_type, is_default, lat, lng, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		a.UserID, a.FullName, a.Phone, a.Address, a.City, a.State, a.ZipCode, a.Country,
		a.AddressType, a.IsDefault, a.Lat, a.Lng, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

// ListAddresses returns the owner's addresses, newest first
func (s *Store) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses := []models.Address{}
	err := s.db.SelectContext(ctx, &addresses, s.db.Rebind(
		"SELECT "+addressColumns+" FROM addresses WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress retrieves one of the owner's addresses
func (s *Store) GetAddress(ctx context.Context, userID, id int64) (*models.Address, error) {
	return getAddress(ctx, s.db, userID, id)
}

// UpdateAddress overwrites every mutable field of one of the owner's addresses
func (s *Store) UpdateAddress(ctx context.Context, a *models.Address) error {
	a.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE addresses SET full_name = ?, phone = ?, address = ?, city = ?, state = ?,
			zip_code = ?, country = ?, address_type = ?, is_default = ?, lat = ?, lng = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?`),
		a.FullName, a.Phone, a.Address, a.City, a.State, a.ZipCode, a.Country,
		a.AddressType, a.IsDefault, a.Lat, a.Lng, a.UpdatedAt, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAddress removes one of the owner's addresses
func (s *Store) DeleteAddress(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"DELETE FROM addresses WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func getAddress(ctx context.Context, q sqlx.ExtContext, userID, id int64) (*models.Address, error) {
	var a models.Address
	err := sqlx.GetContext(ctx, q, &a, q.Rebind(
		"SELECT "+addressColumns+" FROM addresses WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
