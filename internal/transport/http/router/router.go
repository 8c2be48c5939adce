package router

import (
	"marketplace-core/internal/identity"
	"marketplace-core/internal/service"
	"marketplace-core/internal/transport/http/handlers"
	"marketplace-core/internal/transport/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Services struct {
	Carts     service.CartService
	Checkout  service.CheckoutService
	Orders    service.OrderService
	Inventory service.InventoryService
}

func Router(svc Services, idClient *identity.Client, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	cartHandler := handlers.NewCartHandler(svc.Carts, log)
	checkoutHandler := handlers.NewCheckoutHandler(svc.Checkout, log)
	orderHandler := handlers.NewOrderHandler(svc.Orders, log)
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory, log)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(idClient, log))
	{
		api.GET("/cart", cartHandler.GetCart)
		api.DELETE("/cart", cartHandler.ClearCart)
		api.POST("/cart/items", cartHandler.AddItem)
		api.DELETE("/cart/items/:productID", cartHandler.RemoveItem)

		api.POST("/checkout", checkoutHandler.PlaceOrder)

		api.GET("/orders", orderHandler.ListMyOrders)
		api.GET("/orders/:orderID", orderHandler.GetOrder)
		api.PATCH("/orders/:orderID/status", orderHandler.UpdateStatus)
		api.PATCH("/orders/:orderID/payment", orderHandler.UpdatePayment)
		api.PATCH("/orders/:orderID/tracking", orderHandler.UpdateTracking)
		api.GET("/seller/orders", orderHandler.ListSellerOrders)

		api.POST("/stock", inventoryHandler.Register)
		api.GET("/stock/low", inventoryHandler.ListLowStock)
		api.GET("/stock/:productID", inventoryHandler.GetStock)
		api.PUT("/stock/:productID", inventoryHandler.QuickUpdate)
		api.PUT("/stock/:productID/threshold", inventoryHandler.SetThreshold)
		api.GET("/stock/:productID/reconcile", inventoryHandler.Reconcile)

		api.GET("/ledger", inventoryHandler.LedgerBySeller)
		api.GET("/ledger/product/:productID", inventoryHandler.LedgerByProduct)
		api.GET("/ledger/reference/:referenceID", inventoryHandler.LedgerByReference)
	}

	return r
}
