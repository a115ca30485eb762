package orderControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/apperrors"
	"github.com/mbilalsh/storefront-api/models"
	"github.com/mbilalsh/storefront-api/services/invoice"
	orderService "github.com/mbilalsh/storefront-api/services/order"
)

// -------- Request Structs --------

type PlaceOrderRequest struct {
	PaymentMethod string                    `json:"payment_method" binding:"required"`
	Shipping      orderService.ShippingInfo `json:"shipping" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// -------- Helpers --------

func callerID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func parseOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("orderID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderID must be numeric"})
		return 0, false
	}
	return uint(id), true
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validation *apperrors.ValidationError
	var insufficient *apperrors.InsufficientInventoryError
	switch {
	case errors.Is(err, apperrors.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":          err.Error(),
			"short_products": insufficient.Products,
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// -------- Handlers --------

// POST /orders/place
func PlaceOrderHandler(db *gorm.DB, svc *orderService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyer := callerID(c)
		if buyer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		createReq := orderService.CreateOrderRequest{
			PaymentMethod: req.PaymentMethod,
			Shipping:      req.Shipping,
		}
		if role, _ := c.Get("role"); role == "guest" {
			createReq.SessionID = buyer
		} else {
			createReq.UserID = buyer
		}

		order, err := svc.CreateOrder(db, createReq)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

// POST /orders/:orderID/cancel
func CancelOrderHandler(db *gorm.DB, svc *orderService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		if !svc.CancelOrder(db, orderID, callerID(c)) {
			c.JSON(http.StatusConflict, gin.H{"error": "order cannot be cancelled"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
	}
}

// PUT /orders/:orderID/status
func UpdateOrderStatusHandler(db *gorm.DB, svc *orderService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.UpdateOrderStatus(db, orderID, newStatus); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
	}
}

// PUT /orders/:orderID/payment-status
func UpdatePaymentStatusHandler(db *gorm.DB, svc *orderService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := models.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.UpdatePaymentStatus(db, orderID, newStatus); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated successfully"})
	}
}

// GET /orders (admin)
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /orders/mine
func GetMyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyer := callerID(c)
		if buyer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var orders []models.Order
		if err := db.
			Where("user_id = ? OR session_id = ?", buyer, buyer).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /orders/:orderID
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		var order models.Order
		// numeric id or order number, depending on route usage
		if err := db.
			Preload("Items").
			Where("id = ? OR order_number = ?", id, id).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /orders/:orderID/invoice
func InvoiceHandler(db *gorm.DB, renderer invoice.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}
		data, err := renderer.RenderInvoice(db, orderID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=invoice.xlsx")
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}
