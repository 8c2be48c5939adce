package dto

import "time"

type AddCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int32  `json:"quantity" binding:"required,gt=0"`
}

type CheckoutRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state"`
	Pincode string `json:"pincode" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type UpdatePaymentStatusRequest struct {
	Payment string `json:"payment" binding:"required"`
}

type UpdateTrackingRequest struct {
	Carrier           *string    `json:"carrier"`
	TrackingNumber    *string    `json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ActualDelivery    *time.Time `json:"actual_delivery"`
	CurrentLocation   *string    `json:"current_location"`
}

type RegisterStockRequest struct {
	ProductID        string `json:"product_id" binding:"required,uuid"`
	ReorderThreshold int32  `json:"reorder_threshold" binding:"gte=0"`
	InitialQuantity  int32  `json:"initial_quantity" binding:"gte=0"`
}

type QuickUpdateStockRequest struct {
	Quantity int32  `json:"quantity" binding:"gte=0"`
	Reason   string `json:"reason" binding:"required,oneof=manual restock adjustment"`
	Notes    string `json:"notes"`
}

type SetThresholdRequest struct {
	ReorderThreshold int32 `json:"reorder_threshold" binding:"gte=0"`
}
