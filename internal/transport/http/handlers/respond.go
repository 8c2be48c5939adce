package handlers

import (
	"errors"
	"net/http"

	"marketplace-core/internal/service"
	"marketplace-core/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON парсит тело и переводит ошибки валидатора в пофилдовый формат ответа.
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]dto.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, dto.FieldError{
					Field:   fe.Field(),
					Message: fe.Error(),
					Tag:     fe.Tag(),
				})
			}
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", fields))
			return false
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		return false
	}
	return true
}

// respondError переводит доменные ошибки в HTTP-статусы и единый формат ошибки.
func respondError(c *gin.Context, err error) {
	var insuff *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrStockNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.As(err, &insuff):
		c.JSON(http.StatusConflict, gin.H{
			"code":      "insufficient_stock",
			"message":   insuff.Error(),
			"product":   insuff.ProductID,
			"requested": insuff.Requested,
			"available": insuff.Available,
		})
	case errors.Is(err, service.ErrPriceChanged),
		errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, service.ErrNegativeStock):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrPersistenceConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrShippingIncomplete):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(err.Error()))
	}
}
