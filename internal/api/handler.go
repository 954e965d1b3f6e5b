package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shop-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck is one dependency checked by /ready
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Services bundles the domain services the handlers call
type Services struct {
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Addresses *service.AddressService
	Orders    *service.OrderService
	Auth      *service.AuthService
}

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	cart      *service.CartService
	addresses *service.AddressService
	orders    *service.OrderService
	auth      *service.AuthService
	present   presenter
	checks    []ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, mediaBaseURL string, checks ...ReadinessCheck) *Handler {
	return &Handler{
		catalog:   svc.Catalog,
		cart:      svc.Cart,
		addresses: svc.Addresses,
		orders:    svc.Orders,
		auth:      svc.Auth,
		present:   presenter{mediaBase: mediaBaseURL},
		checks:    checks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/categories/", h.listCategories)
		api.GET("/categories/:slug/", h.getCategory)
		api.GET("/categories/:slug/products/", h.listCategoryProducts)

		api.GET("/products/", h.listProducts)
		api.GET("/products/search/", h.searchProducts)
		api.GET("/products/:slug/", h.getProduct)

		api.POST("/auth/register/", h.register)
		api.POST("/auth/login/", h.login)
		api.POST("/auth/token/refresh/", h.refreshToken)
	}

	authed := api.Group("/", RequireAuth(h.auth))
	{
		authed.GET("/auth/user/", h.currentUser)

		authed.GET("/cart/", h.listCart)
		authed.POST("/cart/", h.addToCart)
		authed.GET("/cart/total/", h.cartTotal)
		authed.POST("/cart/total/", h.cartTotal)
		authed.GET("/cart/:id/", h.getCartLine)
		authed.PUT("/cart/:id/", h.updateCartLine)
		authed.PATCH("/cart/:id/", h.updateCartLine)
		authed.DELETE("/cart/:id/", h.deleteCartLine)

		authed.GET("/addresses/", h.listAddresses)
		authed.POST("/addresses/", h.createAddress)
		authed.GET("/addresses/:id/", h.getAddress)
		authed.PUT("/addresses/:id/", h.replaceAddress)
		authed.PATCH("/addresses/:id/", h.patchAddress)
		authed.DELETE("/addresses/:id/", h.deleteAddress)

		authed.GET("/orders/", h.listOrders)
		authed.POST("/orders/", h.placeOrder)
		authed.POST("/orders/create_order/", h.placeOrder)
		authed.GET("/orders/:id/", h.getOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failures[check.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"failures": failures,
			"time":     time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// pathID parses a numeric path parameter; anything else is treated as a missing resource
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, service.ErrNotFound)
		return 0, false
	}
	return id, true
}
