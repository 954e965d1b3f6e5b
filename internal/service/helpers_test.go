package service

import (
	"context"
	"path/filepath"
	"testing"

	"shop-api/internal/models"
	"shop-api/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	s, err := store.NewStore(store.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedIdentity(t *testing.T, s *store.Store, username string) models.Identity {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return models.Identity{UserID: u.ID, Username: u.Username}
}

func seedProduct(t *testing.T, s *store.Store, slug, price string, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     slug,
		Slug:     slug,
		Price:    decimal.RequireFromString(price),
		Stock:    5,
		IsActive: active,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedAddress(t *testing.T, s *store.Store, id models.Identity) *models.Address {
	t.Helper()
	a := &models.Address{
		UserID: id.UserID, FullName: "Test User", Phone: "555-0100", Address: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
		AddressType: models.AddressTypeHome,
	}
	require.NoError(t, s.CreateAddress(context.Background(), a))
	return a
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }
