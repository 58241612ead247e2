package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/internal/inventory"
	"github.com/aegean-labs/stockroom/internal/inventory/dto"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger *zap.Logger
}

func NewInventoryHandler(uc inventory.UseCase, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) RegisterRoutes(r gin.IRouter) {
	products := r.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/search", h.SearchProducts)
		products.GET("/low-stock", h.LowStock)
		products.GET("/recent", h.RecentlyUpdated)
		products.GET("/:id", h.GetProduct)
		products.GET("/:id/variations", h.ListVariations)
		products.PUT("/:id/stock", h.UpdateStock)
		products.PATCH("/:id", h.UpdateDetails)
		products.DELETE("/:id/variation", h.DeleteVariation)
	}
	r.GET("/stats", h.Stats)
}

func (h *InventoryHandler) ListProducts(c *gin.Context) {
	filters := &dto.ListFilters{
		IncludeVariations: c.Query("include_variations") == "true",
		LowStockOnly:      c.Query("low_stock") == "true",
		Page:              queryInt(c, "page", 1),
		PageSize:          queryInt(c, "page_size", 50),
	}

	products, total, err := h.uc.List(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":  products,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	p, err := h.uc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *InventoryHandler) ListVariations(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	variations, err := h.uc.Variations(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"variations": variations})
}

func (h *InventoryHandler) SearchProducts(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	products, err := h.uc.Search(c.Request.Context(), term, queryInt(c, "limit", 50))
	if err != nil {
		h.logger.Error("search failed", zap.String("term", term), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	products, err := h.uc.LowStock(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *InventoryHandler) RecentlyUpdated(c *gin.Context) {
	products, err := h.uc.RecentlyUpdated(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *InventoryHandler) Stats(c *gin.Context) {
	stats, err := h.uc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type updateStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a stock field"})
		return
	}

	p, err := h.uc.UpdateStock(c.Request.Context(), id, *req.Stock)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, p)
}

type updateDetailsRequest struct {
	Notes             *string `json:"notes"`
	Aisle             *string `json:"aisle"`
	Shelf             *string `json:"shelf"`
	StorageNotes      *string `json:"storage_notes"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
}

func (h *InventoryHandler) UpdateDetails(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req updateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upd := &dto.ProductUpdate{
		Notes:             req.Notes,
		Aisle:             req.Aisle,
		Shelf:             req.Shelf,
		StorageNotes:      req.StorageNotes,
		LowStockThreshold: req.LowStockThreshold,
	}
	if upd.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	p, err := h.uc.UpdateDetails(c.Request.Context(), id, upd)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *InventoryHandler) DeleteVariation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.uc.DeleteVariation(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
