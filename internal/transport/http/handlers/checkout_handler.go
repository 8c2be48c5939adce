package handlers

import (
	"net/http"

	"marketplace-core/internal/service"
	"marketplace-core/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	log      *zap.Logger
}

func NewCheckoutHandler(checkout service.CheckoutService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, log: log}
}

// PlaceOrder POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.checkout.PlaceOrder(c.Request.Context(), service.ShippingInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
