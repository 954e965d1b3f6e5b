package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity is the authenticated caller every per-user operation is scoped to.
type Identity struct {
	UserID   int64
	Username string
}

// User is an account managed by the identity gateway
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Category groups products in the catalog
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	Image       *string   `db:"image" json:"image"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID            int64               `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Slug          string              `db:"slug" json:"slug"`
	Description   string              `db:"description" json:"description"`
	Image         *string             `db:"image" json:"image"`
	ImageURL      *string             `db:"image_url" json:"image_url"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	OriginalPrice decimal.NullDecimal `db:"original_price" json:"original_price"`
	Discount      int                 `db:"discount" json:"discount"`
	CategoryID    *int64              `db:"category_id" json:"category_id"`
	Stock         int                 `db:"stock" json:"stock"`
	Rating        decimal.Decimal     `db:"rating" json:"rating"`
	ReviewsCount  int                 `db:"reviews_count" json:"reviews_count"`
	IsActive      bool                `db:"is_active" json:"is_active"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	Category      *Category           `db:"-" json:"category,omitempty"`
}

// CartLine is one product in a user's cart, unique per (user, product)
type CartLine struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Product   Product   `db:"-" json:"product"`
}

// CartTotal is the derived cart summary
type CartTotal struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Address is a shipping/billing address owned by a single user
type Address struct {
	ID          int64               `db:"id" json:"id"`
	UserID      int64               `db:"user_id" json:"-"`
	FullName    string              `db:"full_name" json:"full_name"`
	Phone       string              `db:"phone" json:"phone"`
	Address     string              `db:"address" json:"address"`
	City        string              `db:"city" json:"city"`
	State       string              `db:"state" json:"state"`
	ZipCode     string              `db:"zip_code" json:"zip_code"`
	Country     string              `db:"country" json:"country"`
	AddressType string              `db:"address_type" json:"address_type"`
	IsDefault   bool                `db:"is_default" json:"is_default"`
	Lat         decimal.NullDecimal `db:"lat" json:"lat"`
	Lng         decimal.NullDecimal `db:"lng" json:"lng"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// Address types
const (
	AddressTypeHome  = "home"
	AddressTypeWork  = "work"
	AddressTypeOther = "other"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses. Only OrderStatusCreated is produced by checkout; the rest are
// administrative transitions.
const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is an immutable snapshot of a converted cart
type Order struct {
	ID                int64           `db:"id" json:"id"`
	OrderNumber       string          `db:"order_number" json:"order_number"`
	UserID            int64           `db:"user_id" json:"-"`
	Status            OrderStatus     `db:"status" json:"status"`
	DeliveryAddressID *int64          `db:"delivery_address_id" json:"delivery_address_id"`
	Subtotal          decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingCost      decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`
	Discount          decimal.Decimal `db:"discount" json:"discount"`
	Total             decimal.Decimal `db:"total" json:"total"`
	PaymentMethod     string          `db:"payment_method" json:"payment_method"`
	Notes             string          `db:"notes" json:"notes"`
	IdempotencyKey    *string         `db:"idempotency_key" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	Items             []OrderItem     `db:"-" json:"items"`
	DeliveryAddress   *Address        `db:"-" json:"delivery_address"`
}

// OrderItem snapshots a cart line at the moment the order was placed.
// ProductName and Price never follow later catalog edits.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   *int64          `db:"product_id" json:"product"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Total       decimal.Decimal `db:"total" json:"total"`
}
