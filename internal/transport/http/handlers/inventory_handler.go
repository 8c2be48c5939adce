package handlers

import (
	"net/http"
	"strconv"

	"marketplace-core/internal/models"
	"marketplace-core/internal/service"
	"marketplace-core/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	inventory service.InventoryService
	log       *zap.Logger
}

func NewInventoryHandler(inventory service.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, log: log}
}

func parseProductID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id", nil))
		return uuid.Nil, false
	}
	return id, true
}

// Register POST /api/v1/stock
func (h *InventoryHandler) Register(c *gin.Context) {
	var req dto.RegisterStockRequest
	if !bindJSON(c, &req) {
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product_id", nil))
		return
	}
	st, err := h.inventory.RegisterProduct(c.Request.Context(), productID, req.ReorderThreshold, req.InitialQuantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// GetStock GET /api/v1/stock/:productID
func (h *InventoryHandler) GetStock(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	st, err := h.inventory.GetStock(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// QuickUpdate PUT /api/v1/stock/:productID
func (h *InventoryHandler) QuickUpdate(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	var req dto.QuickUpdateStockRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.inventory.QuickUpdateStock(c.Request.Context(), productID,
		req.Quantity, models.LedgerReason(req.Reason), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// SetThreshold PUT /api/v1/stock/:productID/threshold
func (h *InventoryHandler) SetThreshold(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	var req dto.SetThresholdRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.inventory.SetReorderThreshold(c.Request.Context(), productID, req.ReorderThreshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListLowStock GET /api/v1/stock/low
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	items, err := h.inventory.ListLowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func ledgerLimit(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		return v
	}
	return 50
}

// LedgerByProduct GET /api/v1/ledger/product/:productID
func (h *InventoryHandler) LedgerByProduct(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	entries, err := h.inventory.ListLedgerByProduct(c.Request.Context(), productID, ledgerLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// LedgerBySeller GET /api/v1/ledger
func (h *InventoryHandler) LedgerBySeller(c *gin.Context) {
	entries, err := h.inventory.ListLedgerBySeller(c.Request.Context(), ledgerLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// LedgerByReference GET /api/v1/ledger/reference/:referenceID
func (h *InventoryHandler) LedgerByReference(c *gin.Context) {
	refID, err := uuid.Parse(c.Param("referenceID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid reference id", nil))
		return
	}
	entries, err := h.inventory.ListLedgerByReference(c.Request.Context(), refID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Reconcile GET /api/v1/stock/:productID/reconcile
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	res, err := h.inventory.Reconcile(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
