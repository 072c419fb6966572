package order

import (
	"errors"
	"fmt"
	"strconv"

	"repair-ops/constants"
	"repair-ops/logger"
	notificationModel "repair-ops/models/notification"
	orderModel "repair-ops/models/order"
	userModel "repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	notificationService "repair-ops/services/notification"
	"repair-ops/types"
	orderTypes "repair-ops/types/order"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// OrderController handles repair order CRUD and lifecycle transitions.
type OrderController struct {
	DB            *gorm.DB
	Logger        *logger.AsyncLogger
	ActionLogs    *actionlogService.ActionLogService
	Notifications *notificationService.NotificationService
}

// NewOrderController creates a new order controller
func NewOrderController(db *gorm.DB, asyncLogger *logger.AsyncLogger, actionLogs *actionlogService.ActionLogService, notifs *notificationService.NotificationService) *OrderController {
	return &OrderController{
		DB:            db,
		Logger:        asyncLogger,
		ActionLogs:    actionLogs,
		Notifications: notifs,
	}
}

func (oc *OrderController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	oc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Store creates a repair order for a customer and assigns an order number.
func (oc *OrderController) Store(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req orderTypes.OrderCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	var customer userModel.User
	if err := oc.DB.Where("id = ? AND deleted_at IS NULL", req.CustomerID).First(&customer).Error; err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Customer not found",
			Status:  fiber.StatusNotFound,
		})
	}

	orderNo, err := utils.GenerateOrderNo()
	if err != nil {
		logger.Error("Failed to generate order number", err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to create order",
			Status:  fiber.StatusInternalServerError,
		})
	}

	ord := orderModel.Order{
		OrderNo:     orderNo,
		CustomerID:  customer.ID,
		ItemName:    req.ItemName,
		Description: req.Description,
		TotalPrice:  req.TotalPrice,
		Status:      orderModel.OrderStatusPending,
		CreatedBy:   actor.Uuid,
	}
	if err := oc.DB.Create(&ord).Error; err != nil {
		logger.Error("Failed to create order", err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to create order",
			Status:  fiber.StatusInternalServerError,
		})
	}

	logger.Success("Order created: " + ord.OrderNo)
	return oc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Order created",
		Status:  fiber.StatusCreated,
		Data:    ord,
	})
}

// Index lists orders, status-filterable. Customers only see their own.
func (oc *OrderController) Index(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	page, perPage, offset := utils.Pagination(c)

	db := oc.DB.Model(&orderModel.Order{}).Where("deleted_at IS NULL")
	if !actor.IsStaff() {
		db = db.Where("customer_id = ?", actor.ID)
	}
	if status := c.Query("status"); status != "" {
		if !orderModel.OrderStatus(status).IsValid() {
			return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
				Success: false,
				Message: "Invalid status filter",
				Status:  fiber.StatusBadRequest,
			})
		}
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list orders",
			Status:  fiber.StatusInternalServerError,
		})
	}

	var orders []orderModel.Order
	if err := db.Preload("Customer").Order("id DESC").Limit(perPage).Offset(offset).Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders", err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list orders",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return oc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Orders listed",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"orders":   orders,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		},
	})
}

// Show returns one order with its status history.
func (oc *OrderController) Show(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid order id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var ord orderModel.Order
	err = oc.DB.Preload("Customer").Where("id = ? AND deleted_at IS NULL", id).First(&ord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return oc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Order not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load order", err)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to load order",
			Status:  fiber.StatusInternalServerError,
		})
	}

	if !actor.IsStaff() && ord.CustomerID != actor.ID {
		return oc.sendResponseWithLog(c, fiber.StatusForbidden, types.ApiResponse{
			Success: false,
			Message: "Not your order",
			Status:  fiber.StatusForbidden,
		})
	}

	var events []orderModel.OrderStatusEvent
	if err := oc.DB.Where("order_id = ?", ord.ID).Order("id").Find(&events).Error; err != nil {
		logger.Error("Failed to load order status events", err)
	}

	return oc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Order fetched",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"order":  ord,
			"events": events,
		},
	})
}

// UpdateStatus moves an order along its lifecycle. The transition is
// validated, recorded as a status event and announced to the customer.
func (oc *OrderController) UpdateStatus(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid order id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var req orderTypes.OrderStatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}
	next := orderModel.OrderStatus(req.Status)

	var ord orderModel.Order
	err = oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND deleted_at IS NULL", id).First(&ord).Error; err != nil {
			return err
		}
		if !ord.Status.CanTransitionTo(next) {
			return fmt.Errorf("transition %s -> %s is not allowed", ord.Status, next)
		}

		event := orderModel.OrderStatusEvent{
			OrderID:    ord.ID,
			FromStatus: ord.Status,
			ToStatus:   next,
			CreatedBy:  actor.Uuid,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		return tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
			Updates(map[string]interface{}{
				"status":     next,
				"updated_by": actor.Uuid,
			}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return oc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Order not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusUnprocessableEntity, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnprocessableEntity,
		})
	}

	oc.ActionLogs.Record(actor, constants.ActionChangeOrderStatus, &ord.ID,
		fmt.Sprintf("order %s moved %s -> %s", ord.OrderNo, ord.Status, next))
	if err := oc.Notifications.Notify(ord.CustomerID,
		notificationModel.TypeOrderStatusChanged,
		"Order status updated",
		fmt.Sprintf("Order %s is now %s", ord.OrderNo, next),
		ord.ID); err != nil {
		logger.Error("Failed to notify customer about status change", err)
	}

	ord.Status = next
	return oc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Order status updated",
		Status:  fiber.StatusOK,
		Data:    ord,
	})
}

// AttachWaybill stores the inbound or outbound courier waybill number on an
// order. Uploaded videos correlate to the order through this number.
func (oc *OrderController) AttachWaybill(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid order id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var req orderTypes.WaybillAttachRequest
	if err := c.BodyParser(&req); err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return oc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	column := "inbound_waybill_no"
	if req.Direction == orderTypes.WaybillOutbound {
		column = "outbound_waybill_no"
	}

	res := oc.DB.Model(&orderModel.Order{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			column:       req.WaybillNo,
			"updated_by": actor.Uuid,
		})
	if res.Error != nil {
		logger.Error("Failed to attach waybill", res.Error)
		return oc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to attach waybill",
			Status:  fiber.StatusInternalServerError,
		})
	}
	if res.RowsAffected == 0 {
		return oc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Order not found",
			Status:  fiber.StatusNotFound,
		})
	}

	return oc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Waybill attached",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"order_id":   id,
			"direction":  req.Direction,
			"waybill_no": req.WaybillNo,
		},
	})
}
