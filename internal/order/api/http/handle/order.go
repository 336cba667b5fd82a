package handle

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/app/services"
	"canteen-backend/internal/order/domain/dto"
	"canteen-backend/internal/order/domain/models"
	"canteen-backend/pkg/logger"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        *logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func (oh *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		oh.mylog.Action("parse_failed").Warn("Failed to parse order request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON"})
		return
	}

	order, err := oh.orderService.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListAdmin serves the staff dashboard: soft-deleted orders are hidden and
// the user-facing notification text is never included.
func (oh *OrderHandler) ListAdmin(c *gin.Context) {
	orders, err := oh.orderService.ListAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (oh *OrderHandler) ListByEmail(c *gin.Context) {
	orders, err := oh.orderService.ListByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// Get serves the staff view of a single order: like the dashboard listing,
// it never includes the user-facing notification text.
func (oh *OrderHandler) Get(c *gin.Context) {
	oh.withOrderID(c, func(ctx context.Context, id uuid.UUID) (models.Order, error) {
		order, err := oh.orderService.Get(ctx, id)
		if err != nil {
			return models.Order{}, err
		}
		return order.AdminView(), nil
	})
}

func (oh *OrderHandler) Accept(c *gin.Context) {
	oh.withOrderID(c, oh.orderService.Accept)
}

func (oh *OrderHandler) Ready(c *gin.Context) {
	oh.withOrderID(c, oh.orderService.Ready)
}

func (oh *OrderHandler) Collected(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req dto.CollectedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Collected == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field 'collected' is required"})
		return
	}
	order, err := oh.orderService.Collected(c.Request.Context(), id, *req.Collected)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oh *OrderHandler) Reject(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := oh.orderService.Reject(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order rejected", "order": order})
}

func (oh *OrderHandler) Delete(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := oh.orderService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Order deleted"})
}

func (oh *OrderHandler) ItemFeedback(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON"})
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %s", core.ErrItemNotFound, req.ItemID))
		return
	}
	order, err := oh.orderService.ItemFeedback(c.Request.Context(), id, itemID, req.Rating, req.Feedback)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oh *OrderHandler) withOrderID(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (models.Order, error)) {
	id, err := orderID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := fn(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// orderID parses the path id; a malformed id cannot resolve to an order,
// so it is reported as not found.
func orderID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", core.ErrOrderNotFound, c.Param("id"))
	}
	return id, nil
}
