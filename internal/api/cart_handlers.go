package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  *int  `json:"quantity"`
}

type updateCartLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) listCart(c *gin.Context) {
	lines, err := h.cart.ListItems(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.cartLines(lines))
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	line, err := h.cart.AddItem(c.Request.Context(), identity(c), req.ProductID, quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.present.cartLine(*line))
}

func (h *Handler) cartTotal(c *gin.Context) {
	total, err := h.cart.Total(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartTotalResponse{Total: money(total.Total), Count: total.Count})
}

func (h *Handler) getCartLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	line, err := h.cart.GetItem(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.cartLine(*line))
}

func (h *Handler) updateCartLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	line, err := h.cart.UpdateQuantity(c.Request.Context(), identity(c), id, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.cartLine(*line))
}

func (h *Handler) deleteCartLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cart.RemoveItem(c.Request.Context(), identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
