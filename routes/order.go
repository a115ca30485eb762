package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/mbilalsh/storefront-api/controllers/order"
	"github.com/mbilalsh/storefront-api/middleware"
	"github.com/mbilalsh/storefront-api/services/invoice"
	"github.com/mbilalsh/storefront-api/services/order"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB, svc *order.Service) {
	renderer := invoice.XLSXRenderer{}

	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Create a new order from the caller's cart
		orders.POST("/place", orderControllers.PlaceOrderHandler(db, svc))

		// Cancel an order (pending/processing only, must belong to caller)
		orders.POST("/:orderID/cancel", orderControllers.CancelOrderHandler(db, svc))

		// Fetch the caller's orders
		orders.GET("/mine", orderControllers.GetMyOrdersHandler(db))

		// Fetch a single order by id or order number
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))

		// Invoice download
		orders.GET("/:orderID/invoice", orderControllers.InvoiceHandler(db, renderer))
	}

	admin := r.Group("/admin/orders")
	admin.Use(middleware.ValidateAPIKey)
	{
		// Fetch all orders
		admin.GET("/", orderControllers.GetAllOrdersHandler(db))

		// websocket endpoint for real-time order updates
		admin.GET("/ws", orderControllers.OrderWebSocketHandler)

		// Update order status (e.g. delivered, cancelled)
		admin.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(db, svc))

		// Update payment status (e.g. completed, refunded)
		admin.PUT("/:orderID/payment-status", orderControllers.UpdatePaymentStatusHandler(db, svc))
	}
}
