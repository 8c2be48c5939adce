package service

import "marketplace-core/internal/models"

// Таблицы переходов — единственный источник истины для статусных машин.
// Любой переход, которого здесь нет, отклоняется до каких-либо мутаций.

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusNew:        {models.OrderStatusProcessing, models.OrderStatusCancelled, models.OrderStatusReturned},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled, models.OrderStatusReturned},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusReturned},
	// delivered терминален для всего, кроме возврата
	models.OrderStatusDelivered: {models.OrderStatusReturned},
	models.OrderStatusCancelled: {},
	models.OrderStatusReturned:  {},
}

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending:  {models.PaymentStatusPaid, models.PaymentStatusFailed},
	models.PaymentStatusPaid:     {models.PaymentStatusRefunded},
	models.PaymentStatusFailed:   {},
	models.PaymentStatusRefunded: {},
}

func CanTransitionOrder(from, to models.OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionPayment(from, to models.PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsValidOrderStatus(s models.OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

func IsValidPaymentStatus(s models.PaymentStatus) bool {
	_, ok := paymentTransitions[s]
	return ok
}
