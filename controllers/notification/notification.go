package notification

import (
	"errors"
	"strconv"

	"repair-ops/logger"
	notificationService "repair-ops/services/notification"
	"repair-ops/types"
	notificationTypes "repair-ops/types/notification"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// NotificationController exposes a user's notification feed and push
// device registration.
type NotificationController struct {
	DB      *gorm.DB
	Logger  *logger.AsyncLogger
	Service *notificationService.NotificationService
}

// NewNotificationController creates a new notification controller
func NewNotificationController(db *gorm.DB, asyncLogger *logger.AsyncLogger, service *notificationService.NotificationService) *NotificationController {
	return &NotificationController{
		DB:      db,
		Logger:  asyncLogger,
		Service: service,
	}
}

func (nc *NotificationController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	nc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Index lists the caller's notifications, optionally unread only.
func (nc *NotificationController) Index(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	page, perPage, offset := utils.Pagination(c)
	unreadOnly := c.Query("unread") == "true"

	rows, total, err := nc.Service.List(actor.ID, unreadOnly, perPage, offset)
	if err != nil {
		logger.Error("Failed to list notifications", err)
		return nc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list notifications",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return nc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Notifications listed",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"notifications": rows,
			"total":         total,
			"page":          page,
			"per_page":      perPage,
		},
	})
}

// MarkRead sets the read marker on one of the caller's notifications.
func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid notification id",
			Status:  fiber.StatusBadRequest,
		})
	}

	err = nc.Service.MarkRead(actor.ID, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Notification not found or already read",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to mark notification read", err)
		return nc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to mark notification read",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return nc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Notification marked read",
		Status:  fiber.StatusOK,
	})
}

// MarkAllRead sets the read marker on every unread notification.
func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	affected, err := nc.Service.MarkAllRead(actor.ID)
	if err != nil {
		logger.Error("Failed to mark notifications read", err)
		return nc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to mark notifications read",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return nc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Notifications marked read",
		Status:  fiber.StatusOK,
		Data:    fiber.Map{"marked": affected},
	})
}

// RegisterDevice stores a push device token for the caller.
func (nc *NotificationController) RegisterDevice(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req notificationTypes.DeviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	device, err := nc.Service.RegisterDevice(actor.ID, req.Token, req.Platform)
	if err != nil {
		logger.Error("Failed to register device token", err)
		return nc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to register device token",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return nc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Device registered",
		Status:  fiber.StatusCreated,
		Data:    device,
	})
}

// RemoveDevice deletes one of the caller's device tokens.
func (nc *NotificationController) RemoveDevice(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req notificationTypes.DeviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return nc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if req.Token == "" {
		return nc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "token is required",
			Status:  fiber.StatusBadRequest,
		})
	}

	err = nc.Service.RemoveDevice(actor.ID, req.Token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Device token not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to remove device token", err)
		return nc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to remove device token",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return nc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Device removed",
		Status:  fiber.StatusOK,
	})
}
