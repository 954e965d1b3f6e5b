package api

import (
	"net/http"

	"shop-api/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAddresses(c *gin.Context) {
	addresses, err := h.addresses.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.addresses(addresses))
}

func (h *Handler) createAddress(c *gin.Context) {
	var in service.AddressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	addr, err := h.addresses.Create(c.Request.Context(), identity(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.present.address(*addr))
}

func (h *Handler) getAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	addr, err := h.addresses.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.address(*addr))
}

func (h *Handler) replaceAddress(c *gin.Context) {
	h.updateAddress(c, false)
}

func (h *Handler) patchAddress(c *gin.Context) {
	h.updateAddress(c, true)
}

func (h *Handler) updateAddress(c *gin.Context, partial bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.AddressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	addr, err := h.addresses.Update(c.Request.Context(), identity(c), id, in, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.address(*addr))
}

func (h *Handler) deleteAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.addresses.Delete(c.Request.Context(), identity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
