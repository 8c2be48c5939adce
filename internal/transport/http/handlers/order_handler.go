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

type OrderHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid order id", nil))
		return uuid.Nil, false
	}
	return id, true
}

func listFilter(c *gin.Context) service.OrderListFilter {
	f := service.OrderListFilter{Limit: 20}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		f.Offset = v
	}
	if s := c.Query("status"); s != "" {
		st := models.OrderStatus(s)
		f.Status = &st
	}
	if p := c.Query("payment"); p != "" {
		ps := models.PaymentStatus(p)
		f.Payment = &ps
	}
	return f
}

// GetOrder GET /api/v1/orders/:orderID
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	ord, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

// ListMyOrders GET /api/v1/orders
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, total, err := h.orders.ListBuyerOrders(c.Request.Context(), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// ListSellerOrders GET /api/v1/seller/orders
func (h *OrderHandler) ListSellerOrders(c *gin.Context) {
	orders, total, err := h.orders.ListSellerOrders(c.Request.Context(), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// UpdateStatus PATCH /api/v1/orders/:orderID/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ord, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, models.OrderStatus(req.Status), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

// UpdatePayment PATCH /api/v1/orders/:orderID/payment
func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req dto.UpdatePaymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ord, err := h.orders.UpdatePaymentStatus(c.Request.Context(), id, models.PaymentStatus(req.Payment))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

// UpdateTracking PATCH /api/v1/orders/:orderID/tracking
func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req dto.UpdateTrackingRequest
	if !bindJSON(c, &req) {
		return
	}
	ord, err := h.orders.UpdateTracking(c.Request.Context(), id, service.TrackingInput{
		Carrier:           req.Carrier,
		TrackingNumber:    req.TrackingNumber,
		EstimatedDelivery: req.EstimatedDelivery,
		ActualDelivery:    req.ActualDelivery,
		CurrentLocation:   req.CurrentLocation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}
