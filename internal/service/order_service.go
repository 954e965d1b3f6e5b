package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-api/internal/models"
	"shop-api/internal/redisclient"
	"shop-api/internal/store"
	"shop-api/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutLocker is a cross-instance mutex keyed by name
type CheckoutLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// OrderEventPublisher announces placed orders
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
}

// OrderPolicy holds the configurable checkout rules
type OrderPolicy struct {
	AllowNegativeTotal bool
	LockTTL            time.Duration
}

// OrderService converts carts into orders
type OrderService struct {
	store     *store.Store
	locker    CheckoutLocker
	publisher OrderEventPublisher
	policy    OrderPolicy
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service. locker and publisher are optional.
func NewOrderService(store *store.Store, locker CheckoutLocker, publisher OrderEventPublisher, policy OrderPolicy) *OrderService {
	if policy.LockTTL <= 0 {
		policy.LockTTL = 10 * time.Second
	}
	return &OrderService{
		store:     store,
		locker:    locker,
		publisher: publisher,
		policy:    policy,
		logger:    util.GetLogger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrderInput is the checkout form
type PlaceOrderInput struct {
	DeliveryAddressID *int64
	ShippingCost      *decimal.Decimal
	Discount          *decimal.Decimal
	PaymentMethod     string
	Notes             string
	IdempotencyKey    string
}

// PlaceOrder converts the caller's cart into an order. created is false when an
// earlier order with the same idempotency key is returned instead.
func (s *OrderService) PlaceOrder(ctx context.Context, id models.Identity, in PlaceOrderInput) (order *models.Order, created bool, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	shipping, discount, err := s.validatePlaceOrder(ctx, id, &in)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, false, err
	}

	release, err := s.lockCheckout(ctx, id.UserID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("locked").Inc()
		return nil, false, err
	}
	defer release()

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.LockUser(ctx, id.UserID); err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			existing, err := tx.GetOrderByIdempotencyKey(ctx, id.UserID, in.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("failed to check idempotency: %w", err)
			}
			if existing != nil {
				order, err = tx.GetOrder(ctx, id.UserID, existing.ID)
				return err
			}
		}

		if err := tx.LockAddress(ctx, id.UserID, *in.DeliveryAddressID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewValidationError("delivery_address_id", invalidPK(*in.DeliveryAddressID))
			}
			return fmt.Errorf("failed to lock delivery address: %w", err)
		}

		lines, err := tx.ListCartLines(ctx, id.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		for _, line := range lines {
			if line.Product.ID == 0 {
				return NewValidationError("cart", fmt.Sprintf("Product %d is no longer available.", line.ProductID))
			}
		}

		subtotal := models.CartTotals(lines).Total
		total := models.OrderTotal(subtotal, shipping, discount)
		if total.IsNegative() && !s.policy.AllowNegativeTotal {
			return NewValidationError("discount", "Discount cannot exceed the order subtotal plus shipping.")
		}
		verr := &ValidationError{}
		checkDecimal(verr, "subtotal", subtotal, moneyDigits, moneyPlaces)
		checkDecimal(verr, "total", total.Abs(), moneyDigits, moneyPlaces)
		if err := verr.OrNil(); err != nil {
			return err
		}

		header := &models.Order{
			OrderNumber:       s.newOrderNumber(),
			UserID:            id.UserID,
			Status:            models.OrderStatusCreated,
			DeliveryAddressID: in.DeliveryAddressID,
			Subtotal:          subtotal,
			ShippingCost:      shipping,
			Discount:          discount,
			Total:             total,
			PaymentMethod:     in.PaymentMethod,
			Notes:             in.Notes,
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			header.IdempotencyKey = &key
		}
		if err := tx.CreateOrder(ctx, header); err != nil {
			return err
		}

		for _, line := range lines {
			productID := line.ProductID
			item := &models.OrderItem{
				OrderID:     header.ID,
				ProductID:   &productID,
				ProductName: line.Product.Name,
				Quantity:    line.Quantity,
				Price:       line.Product.Price,
				Total:       models.LineTotal(line),
			}
			if err := tx.CreateOrderItem(ctx, item); err != nil {
				return err
			}
		}

		if _, err := tx.ClearCart(ctx, id.UserID); err != nil {
			return err
		}

		order, err = tx.GetOrder(ctx, id.UserID, header.ID)
		created = true
		return err
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, false, err
	}

	if !created {
		util.OrderIdempotentReplaysTotal.Inc()
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", in.IdempotencyKey),
			zap.Int64("order_id", order.ID))
		return order, false, nil
	}

	total, _ := order.Total.Float64()
	util.OrdersPlacedTotal.Inc()
	util.OrderValue.Observe(total)
	util.OrderItemsPerOrder.Observe(float64(len(order.Items)))
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", id.UserID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	s.publishOrderPlaced(ctx, order)
	return order, true, nil
}

func (s *OrderService) validatePlaceOrder(ctx context.Context, id models.Identity, in *PlaceOrderInput) (shipping, discount decimal.Decimal, err error) {
	verr := &ValidationError{}

	if in.DeliveryAddressID == nil {
		verr.Add("delivery_address_id", msgRequired)
	} else if _, err := s.store.GetAddress(ctx, id.UserID, *in.DeliveryAddressID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return shipping, discount, err
		}
		verr.Add("delivery_address_id", invalidPK(*in.DeliveryAddressID))
	}

	if in.ShippingCost != nil {
		shipping = *in.ShippingCost
		if shipping.IsNegative() {
			verr.Add("shipping_cost", msgMinZero)
		} else {
			checkDecimal(verr, "shipping_cost", shipping, moneyDigits, moneyPlaces)
		}
	}
	if in.Discount != nil {
		discount = *in.Discount
		if discount.IsNegative() {
			verr.Add("discount", msgMinZero)
		} else {
			checkDecimal(verr, "discount", discount, moneyDigits, moneyPlaces)
		}
	}

	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if len([]rune(in.PaymentMethod)) > 50 {
		verr.Add("payment_method", "Ensure this field has no more than 50 characters.")
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if len(in.IdempotencyKey) > 100 {
		verr.Add("idempotency_key", "Ensure this field has no more than 100 characters.")
	}

	return shipping, discount, verr.OrNil()
}

func invalidPK(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

// lockCheckout takes the per-user distributed lock when a locker is configured.
// The database row lock still serialises checkouts without it.
func (s *OrderService) lockCheckout(ctx context.Context, userID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	name := redisclient.CheckoutLockName(userID)
	token, ok, err := s.locker.AcquireLock(ctx, name, s.policy.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), name, token); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.Int64("user_id", userID), zap.Error(err))
		}
	}, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.publisher.PublishOrderPlaced(pubCtx, order); err != nil {
		s.logger.Error("Failed to publish ORDER_PLACED",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

// newOrderNumber returns ORD-YYYYMMDD-XXXXXXXX
func (s *OrderService) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", s.now().Format("20060102"), suffix)
}

func failureReason(err error) string {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &verr):
		return "validation"
	default:
		return "db_error"
	}
}

// ListOrders returns the caller's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, id models.Identity) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	return s.store.ListOrdersByUser(ctx, id.UserID)
}

// GetOrder returns one of the caller's orders
func (s *OrderService) GetOrder(ctx context.Context, id models.Identity, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.store.GetOrderForUser(ctx, id.UserID, orderID)
}
