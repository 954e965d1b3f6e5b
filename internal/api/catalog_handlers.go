package api

import (
	"net/http"

	"shop-api/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.categories(categories))
}

func (h *Handler) getCategory(c *gin.Context) {
	category, err := h.catalog.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.category(*category))
}

func (h *Handler) listCategoryProducts(c *gin.Context) {
	products, err := h.catalog.ListCategoryProducts(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.products(products))
}

// listProducts supports ?category=<slug>, ?search=<text> and ?ordering=[-]price|name|created_at|discount
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), store.ProductFilter{
		CategorySlug: c.Query("category"),
		Query:        c.Query("search"),
		Ordering:     c.Query("ordering"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.products(products))
}

func (h *Handler) searchProducts(c *gin.Context) {
	products, err := h.catalog.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.products(products))
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.product(*product))
}
