package api

import (
	"errors"
	"io"
	"net/http"

	"shop-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type placeOrderRequest struct {
	DeliveryAddressID *int64           `json:"delivery_address_id"`
	ShippingCost      *decimal.Decimal `json:"shipping_cost"`
	Discount          *decimal.Decimal `json:"discount"`
	PaymentMethod     string           `json:"payment_method"`
	Notes             string           `json:"notes"`
	IdempotencyKey    string           `json:"idempotency_key"`
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.orders(orders))
}

// placeOrder converts the caller's cart. A repeated Idempotency-Key returns the
// original order with 200 instead of 201.
func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, created, err := h.orders.PlaceOrder(c.Request.Context(), identity(c), service.PlaceOrderInput{
		DeliveryAddressID: req.DeliveryAddressID,
		ShippingCost:      req.ShippingCost,
		Discount:          req.Discount,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
		IdempotencyKey:    req.IdempotencyKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, h.present.order(*order))
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.order(*order))
}
