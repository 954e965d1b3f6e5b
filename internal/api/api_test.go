package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shop-api/internal/auth"
	"shop-api/internal/models"
	"shop-api/internal/service"
	"shop-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	store  *store.Store
}

func newTestServer(t *testing.T, checks ...ReadinessCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.NewStore(store.DriverSQLite, filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	tokens := auth.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	h := NewHandler(Services{
		Catalog:   service.NewCatalogService(s),
		Cart:      service.NewCartService(s),
		Addresses: service.NewAddressService(s),
		Orders:    service.NewOrderService(s, nil, nil, service.OrderPolicy{}),
		Auth:      service.NewAuthService(s, tokens),
	}, "http://media.test/media", checks...)

	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{router: router, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/register/", "", gin.H{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "Blue-Kettle-42",
		"password2": "Blue-Kettle-42",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["access"].(string)
}

func (ts *testServer) seedProduct(t *testing.T, slug, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: slug, Slug: slug, Price: decimal.RequireFromString(price), Stock: 3, IsActive: true}
	require.NoError(t, ts.store.CreateProduct(context.Background(), p))
	return p
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/ready", "", nil).Code)

	failing := newTestServer(t, ReadinessCheck{Name: "redis", Ping: func(context.Context) error {
		return errors.New("connection refused")
	}})
	w := failing.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	books := &models.Category{Name: "Books", Slug: "books"}
	misc := &models.Category{Name: "Misc", Slug: "misc"}
	require.NoError(t, ts.store.CreateCategory(ctx, books))
	require.NoError(t, ts.store.CreateCategory(ctx, misc))
	uploaded := "products/novel.jpg"
	novel := &models.Product{Name: "Novel", Slug: "novel", Description: "A gripping story",
		Image: &uploaded, Price: decimal.RequireFromString("12.5"), CategoryID: &books.ID, IsActive: true}
	require.NoError(t, ts.store.CreateProduct(ctx, novel))
	ts.seedProduct(t, "lamp", "30")

	w := ts.do(t, http.MethodGet, "/api/categories/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cats []categoryResponse
	decode(t, w, &cats)
	require.Len(t, cats, 2)
	assert.Equal(t, defaultCategoryImages["books"], cats[0].Image)
	assert.Equal(t, categoryPlaceholderImage, cats[1].Image)

	w = ts.do(t, http.MethodGet, "/api/products/?ordering=price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []productResponse
	decode(t, w, &products)
	require.Len(t, products, 2)
	assert.Equal(t, "novel", products[0].Slug)
	assert.Equal(t, "12.50", products[0].Price)
	require.NotNil(t, products[0].Image)
	assert.Equal(t, "http://media.test/media/products/novel.jpg", *products[0].Image)
	assert.Nil(t, products[1].Image)

	w = ts.do(t, http.MethodGet, "/api/products/search/?q=gripping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &products)
	require.Len(t, products, 1)

	w = ts.do(t, http.MethodGet, "/api/products/search/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/products/novel/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var one productResponse
	decode(t, w, &one)
	require.NotNil(t, one.Category)
	assert.Equal(t, "books", one.Category.Slug)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/products/missing/", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/categories/books/products/", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/categories/nope/", "", nil).Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/cart/", "/api/orders/", "/api/addresses/", "/api/auth/user/"} {
		w := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := ts.do(t, http.MethodGet, "/api/cart/", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginResponses(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	w := ts.do(t, http.MethodPost, "/api/auth/login/", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Username and password required"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/login/", "", gin.H{"username": "alice", "password": "nope-nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/login/", "", gin.H{"username": "alice", "password": "Blue-Kettle-42"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User    userResponse `json:"user"`
		Token   string       `json:"token"`
		Refresh string       `json:"refresh"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.Token)

	w = ts.do(t, http.MethodPost, "/api/auth/token/refresh/", "", gin.H{"refresh": resp.Refresh})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access"`)

	w = ts.do(t, http.MethodGet, "/api/auth/user/", resp.Refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh tokens are not access tokens")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/auth/register/", "", gin.H{
		"username": "bob", "email": "bob@example.com",
		"password": "Blue-Kettle-42", "password2": "Red-Kettle-42",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var fields map[string][]string
	decode(t, w, &fields)
	assert.Contains(t, fields["password"], "Password fields didn't match.")
}

func TestRegisterPasswordOverBcryptLimit(t *testing.T) {
	ts := newTestServer(t)
	password := strings.Repeat("Kettle-", 12)
	w := ts.do(t, http.MethodPost, "/api/auth/register/", "", gin.H{
		"username": "bob", "email": "bob@example.com",
		"password": password, "password2": password,
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var fields map[string][]string
	decode(t, w, &fields)
	assert.Equal(t, []string{"This password is too long. It must contain at most 72 bytes."}, fields["password"])
}

func TestCheckoutRejectsSubCentAmounts(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")
	widget := ts.seedProduct(t, "widget", "25.00")

	w := ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{"product_id": widget.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, "/api/addresses/", token, gin.H{
		"full_name": "Alice", "phone": "555", "address": "1 Main St", "city": "Springfield",
		"state": "IL", "zip_code": "62701", "country": "US", "lat": "40.7127753",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.JSONEq(t, `{"lat":["Ensure that there are no more than 6 decimal places."]}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/addresses/", token, gin.H{
		"full_name": "Alice", "phone": "555", "address": "1 Main St", "city": "Springfield",
		"state": "IL", "zip_code": "62701", "country": "US",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var addr addressResponse
	decode(t, w, &addr)

	w = ts.do(t, http.MethodPost, "/api/orders/", token, gin.H{
		"delivery_address_id": addr.ID, "shipping_cost": "0.006", "discount": "0.004",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"shipping_cost": ["Ensure that there are no more than 2 decimal places."],
		"discount": ["Ensure that there are no more than 2 decimal places."]
	}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/orders/", token, gin.H{
		"delivery_address_id": addr.ID, "shipping_cost": "0.01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed orderResponse
	decode(t, w, &placed)
	assert.Equal(t, "25.00", placed.Subtotal)
	assert.Equal(t, "0.01", placed.ShippingCost)
	assert.Equal(t, "25.01", placed.Total)
}

func TestCheckoutFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")
	widget := ts.seedProduct(t, "widget", "10.00")
	gadget := ts.seedProduct(t, "gadget", "5.00")

	w := ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{"product_id": widget.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{"product_id": widget.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var line cartLineResponse
	decode(t, w, &line)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "20.00", line.TotalPrice)

	w = ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{"product_id": gadget.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/api/cart/total/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":"25.00","count":2}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/addresses/", token, gin.H{
		"full_name": "Alice", "phone": "555", "address": "1 Main St", "city": "Springfield",
		"state": "IL", "zip_code": "62701", "country": "US",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var addr addressResponse
	decode(t, w, &addr)
	assert.Equal(t, "home", addr.AddressType)

	order := gin.H{"delivery_address_id": addr.ID, "shipping_cost": "5.00", "discount": 0, "payment_method": "card"}
	req := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(order))
		r := httptest.NewRequest(http.MethodPost, "/api/orders/create_order/", &buf)
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("Idempotency-Key", "retry-1")
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, r)
		return rec
	}

	w = req()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed orderResponse
	decode(t, w, &placed)
	assert.Equal(t, "created", placed.Status)
	assert.Equal(t, "25.00", placed.Subtotal)
	assert.Equal(t, "30.00", placed.Total)
	assert.Len(t, placed.Items, 2)
	require.NotNil(t, placed.DeliveryAddress)

	w = req()
	require.Equal(t, http.StatusOK, w.Code)
	var replayed orderResponse
	decode(t, w, &replayed)
	assert.Equal(t, placed.ID, replayed.ID)

	w = ts.do(t, http.MethodGet, "/api/cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/orders/", token, gin.H{"delivery_address_id": addr.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cart is empty"}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/orders/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []orderResponse
	decode(t, w, &orders)
	assert.Len(t, orders, 1)

	other := ts.register(t, "mallory")
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/", placed.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/addresses/%d/", addr.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/", placed.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartLineEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")
	p := ts.seedProduct(t, "widget", "2.00")

	w := ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{"product_id": p.ID, "quantity": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "quantity")

	w = ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"product_id":["This field is required."]}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/cart/", token, gin.H{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var line cartLineResponse
	decode(t, w, &line)

	path := fmt.Sprintf("/api/cart/%d/", line.ID)
	w = ts.do(t, http.MethodPatch, path, token, gin.H{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &line)
	assert.Equal(t, "8.00", line.TotalPrice)

	w = ts.do(t, http.MethodGet, "/api/cart/abc/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
