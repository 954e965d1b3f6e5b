package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shop-api/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	s, err := NewStore(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, s *Store, slug, price string, categoryID *int64, createdAt time.Time) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       slug,
		Slug:       slug,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		Stock:      10,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewStore("mysql", "whatever")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestListProductsFiltersAndOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	electronics := &models.Category{Name: "Electronics", Slug: "electronics"}
	books := &models.Category{Name: "Books", Slug: "books"}
	require.NoError(t, s.CreateCategory(ctx, electronics))
	require.NoError(t, s.CreateCategory(ctx, books))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedProduct(t, s, "phone", "499.00", &electronics.ID, base)
	seedProduct(t, s, "laptop", "1299.99", &electronics.ID, base.Add(time.Hour))
	seedProduct(t, s, "novel", "9.50", &books.ID, base.Add(2*time.Hour))
	hidden := seedProduct(t, s, "hidden-phone", "1.00", &electronics.ID, base.Add(3*time.Hour))
	_, err := s.GetDB().Exec("UPDATE products SET is_active = 0 WHERE id = ?", hidden.ID)
	require.NoError(t, err)

	all, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "novel", all[0].Slug, "default ordering is newest first")
	require.NotNil(t, all[0].Category)
	assert.Equal(t, "books", all[0].Category.Slug)

	byPrice, err := s.ListProducts(ctx, ProductFilter{Ordering: "price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"novel", "phone", "laptop"}, slugs(byPrice))

	byPriceDesc, err := s.ListProducts(ctx, ProductFilter{Ordering: "-price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "phone", "novel"}, slugs(byPriceDesc))

	unknown, err := s.ListProducts(ctx, ProductFilter{Ordering: "stock; DROP TABLE products"})
	require.NoError(t, err)
	assert.Equal(t, slugs(all), slugs(unknown))

	inCategory, err := s.ListProducts(ctx, ProductFilter{CategorySlug: "electronics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "phone"}, slugs(inCategory))

	search, err := s.ListProducts(ctx, ProductFilter{Query: "LAP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop"}, slugs(search))
}

func TestListProductsEscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "plain", "1.00", nil, time.Time{})
	seedProduct(t, s, "half_off", "1.00", nil, time.Time{})

	got, err := s.ListProducts(ctx, ProductFilter{Query: "%"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ListProducts(ctx, ProductFilter{Query: "_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"half_off"}, slugs(got))
}

func TestListProductsFoldsNonASCIICase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateProduct(ctx, &models.Product{
		Name: "ĆEVAPI Grill Pan", Slug: "cevapi-pan", Description: "Gusseisen, GRÖSSE 28",
		Price: decimal.RequireFromString("30.00"), IsActive: true,
	}))
	seedProduct(t, s, "plain", "1.00", nil, time.Time{})

	for _, q := range []string{"ćevapi", "Ćevapi", "grösse"} {
		got, err := s.ListProducts(ctx, ProductFilter{Query: q})
		require.NoError(t, err)
		assert.Equal(t, []string{"cevapi-pan"}, slugs(got), q)
	}
}

func TestGetProductBySlugHidesInactive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, "gone", "5.00", nil, time.Time{})
	_, err := s.GetDB().Exec("UPDATE products SET is_active = 0 WHERE id = ?", p.ID)
	require.NoError(t, err)

	_, err = s.GetProductBySlug(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, byID.IsActive)
}

func TestUpsertCartLineMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")
	p := seedProduct(t, s, "mug", "12.50", nil, time.Time{})

	first, err := s.UpsertCartLine(ctx, u.ID, p.ID, 2)
	require.NoError(t, err)
	second, err := s.UpsertCartLine(ctx, u.ID, p.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.True(t, decimal.RequireFromString("12.50").Equal(second.Product.Price))

	lines, err := s.ListCartLines(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestUpsertCartLineConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")
	p := seedProduct(t, s, "mug", "1.00", nil, time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertCartLine(ctx, u.ID, p.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	lines, err := s.ListCartLines(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 10, lines[0].Quantity)
}

func TestSQLiteDSNAddsPragmas(t *testing.T) {
	assert.Equal(t, "shop.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("shop.db"))
	assert.Equal(t, "file:shop.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		sqliteDSN("file:shop.db?mode=rwc"))
	assert.Equal(t, "shop.db?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)",
		sqliteDSN("shop.db?_pragma=foreign_keys(0)"))
}

func TestPlainSQLitePathEnforcesForeignKeys(t *testing.T) {
	s, err := NewStore(DriverSQLite, filepath.Join(t.TempDir(), "plain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	alice := seedUser(t, s, "alice")
	p := seedProduct(t, s, "mug", "1.00", nil, time.Time{})
	_, err = s.UpsertCartLine(ctx, alice.ID, p.ID, 2)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	lines, err := s.ListCartLines(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartLinesAreOwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	p := seedProduct(t, s, "mug", "1.00", nil, time.Time{})

	line, err := s.UpsertCartLine(ctx, alice.ID, p.ID, 1)
	require.NoError(t, err)

	_, err = s.GetCartLine(ctx, bob.ID, line.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateCartLineQuantity(ctx, bob.ID, line.ID, 9), ErrNotFound)
	assert.ErrorIs(t, s.DeleteCartLine(ctx, bob.ID, line.ID), ErrNotFound)

	got, err := s.GetCartLine(ctx, alice.ID, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	require.NoError(t, s.UpdateCartLineQuantity(ctx, alice.ID, line.ID, 4))
	require.NoError(t, s.DeleteCartLine(ctx, alice.ID, line.ID))
	lines, err := s.ListCartLines(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddressCRUDIsOwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	addr := &models.Address{
		UserID: alice.ID, FullName: "Alice", Phone: "555", Address: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
		AddressType: models.AddressTypeHome,
		Lat:         decimal.NewNullDecimal(decimal.RequireFromString("39.781721")),
	}
	require.NoError(t, s.CreateAddress(ctx, addr))

	_, err := s.GetAddress(ctx, bob.ID, addr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteAddress(ctx, bob.ID, addr.ID), ErrNotFound)

	stolen := *addr
	stolen.UserID = bob.ID
	stolen.City = "Elsewhere"
	assert.ErrorIs(t, s.UpdateAddress(ctx, &stolen), ErrNotFound)

	addr.City = "Shelbyville"
	require.NoError(t, s.UpdateAddress(ctx, addr))
	got, err := s.GetAddress(ctx, alice.ID, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", got.City)
	assert.True(t, got.Lat.Valid)
	assert.False(t, got.Lng.Valid)

	list, err := s.ListAddresses(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.DeleteAddress(ctx, alice.ID, addr.ID))
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")

	err := s.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicate)

	exists, err := s.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOrderTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")
	p := seedProduct(t, s, "mug", "2.00", nil, time.Time{})
	_, err := s.UpsertCartLine(ctx, u.ID, p.ID, 1)
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.LockUser(ctx, u.ID))
		order := &models.Order{OrderNumber: "ORD-1", UserID: u.ID, Status: models.OrderStatusCreated}
		require.NoError(t, tx.CreateOrder(ctx, order))
		_, err := tx.ClearCart(ctx, u.ID)
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	orders, err := s.ListOrdersByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	lines, err := s.ListCartLines(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestOrderSnapshotSurvivesCatalogChanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")
	p := seedProduct(t, s, "mug", "2.00", nil, time.Time{})
	key := "key-1"

	var orderID int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		order := &models.Order{
			OrderNumber: "ORD-20240101-ABCDEF12", UserID: u.ID, Status: models.OrderStatusCreated,
			Subtotal: decimal.RequireFromString("4.00"), Total: decimal.RequireFromString("4.00"),
			IdempotencyKey: &key,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		orderID = order.ID
		return tx.CreateOrderItem(ctx, &models.OrderItem{
			OrderID: order.ID, ProductID: &p.ID, ProductName: p.Name, Quantity: 2,
			Price: p.Price, Total: decimal.RequireFromString("4.00"),
		})
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateProductPrice(ctx, p.ID, decimal.RequireFromString("99.00")))
	require.NoError(t, s.DeleteProduct(ctx, p.ID))

	order, err := s.GetOrderForUser(ctx, u.ID, orderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Nil(t, order.Items[0].ProductID)
	assert.Equal(t, "mug", order.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("2.00").Equal(order.Items[0].Price))

	err = s.WithTx(ctx, func(tx *Tx) error {
		found, err := tx.GetOrderByIdempotencyKey(ctx, u.ID, key)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, orderID, found.ID)

		missing, err := tx.GetOrderByIdempotencyKey(ctx, u.ID, "other")
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)

	other := seedUser(t, s, "bob")
	_, err = s.GetOrderForUser(ctx, other.ID, orderID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func slugs(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Slug)
	}
	return out
}
