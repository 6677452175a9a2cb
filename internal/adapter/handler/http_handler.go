package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/core/service"
	"github.com/rl1809/store-inventory/internal/metrics"
)

type HTTPHandler struct {
	inventoryService *service.InventoryService
	timeout          time.Duration
}

// ProductFields are the mutable product attributes shared by add and update.
type ProductFields struct {
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	Quantity          int     `json:"quantity" binding:"min=0"`
	Price             float64 `json:"price" binding:"min=0"`
	ExpiryDate        string  `json:"expiry_date"`
	ManufacturingDate string  `json:"manufacturing_date"`
	Description       string  `json:"description"`
}

func (f ProductFields) product(sku string) domain.Product {
	return domain.Product{
		SKU:               sku,
		Name:              f.Name,
		Category:          f.Category,
		Quantity:          f.Quantity,
		Price:             f.Price,
		ExpiryDate:        f.ExpiryDate,
		ManufacturingDate: f.ManufacturingDate,
		Description:       f.Description,
	}
}

type AddInventoryHTTPRequest struct {
	OwnerEmail string `json:"owner_email" binding:"required,email"`
	UserID     int64  `json:"user_id" binding:"required,min=1"`
	SKU        string `json:"sku" binding:"required,sku"`
	ProductFields
}

type UpdateInventoryHTTPRequest struct {
	ProductFields
}

var registerValidators sync.Once

func NewHTTPHandler(inventoryService *service.InventoryService, timeout time.Duration) *HTTPHandler {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			err := v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
				return domain.NormalizeSKU(fl.Field().String()) != ""
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to register sku validator")
			}
		}
	})
	return &HTTPHandler{inventoryService: inventoryService, timeout: timeout}
}

// NewRouter wires the inventory routes. m may be nil.
func NewRouter(h *HTTPHandler, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(), Recovery())
	if m != nil {
		r.Use(Metrics(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/v1/inventory")
	{
		api.POST("", h.AddInventory)
		api.GET("/:userId/:email", h.GetAllInventory)
		api.PUT("/:userId/:email/:sku", h.UpdateInventory)
		api.DELETE("/:userId/:email/:sku", h.DeleteInventory)
	}
	return r
}

func (h *HTTPHandler) AddInventory(c *gin.Context) {
	var req AddInventoryHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	owner := domain.NewOwner(req.UserID, req.OwnerEmail)
	emit(c, h.inventoryService.AddInventory(ctx, owner, req.product(req.SKU)))
}

func (h *HTTPHandler) GetAllInventory(c *gin.Context) {
	owner, ok := ownerFromPath(c)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	emit(c, h.inventoryService.GetAllInventory(ctx, owner))
}

func (h *HTTPHandler) UpdateInventory(c *gin.Context) {
	owner, ok := ownerFromPath(c)
	if !ok {
		return
	}
	sku := c.Param("sku")
	if domain.NormalizeSKU(sku) == "" {
		badRequest(c, "sku is required")
		return
	}

	var req UpdateInventoryHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	emit(c, h.inventoryService.UpdateInventory(ctx, owner, sku, req.product(sku)))
}

func (h *HTTPHandler) DeleteInventory(c *gin.Context) {
	owner, ok := ownerFromPath(c)
	if !ok {
		return
	}
	sku := c.Param("sku")
	if domain.NormalizeSKU(sku) == "" {
		badRequest(c, "sku is required")
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	emit(c, h.inventoryService.DeleteInventory(ctx, owner, sku))
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func ownerFromPath(c *gin.Context) (domain.Owner, bool) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID < 1 {
		badRequest(c, "user id must be a positive integer")
		return domain.Owner{}, false
	}
	email := c.Param("email")
	if domain.NormalizeEmail(email) == "" {
		badRequest(c, "email is required")
		return domain.Owner{}, false
	}
	return domain.NewOwner(userID, email), true
}
