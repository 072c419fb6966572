package extracharge

import (
	"errors"
	"strconv"

	"repair-ops/logger"
	extrachargeService "repair-ops/services/extracharge"
	"repair-ops/types"
	extrachargeTypes "repair-ops/types/extracharge"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ExtraChargeController exposes the extra-charge workflow. All state logic
// lives in the service; this layer only maps errors to HTTP statuses.
type ExtraChargeController struct {
	DB      *gorm.DB
	Logger  *logger.AsyncLogger
	Service *extrachargeService.ExtraChargeService
}

// NewExtraChargeController creates a new extra charge controller
func NewExtraChargeController(db *gorm.DB, asyncLogger *logger.AsyncLogger, service *extrachargeService.ExtraChargeService) *ExtraChargeController {
	return &ExtraChargeController{
		DB:      db,
		Logger:  asyncLogger,
		Service: service,
	}
}

func (ec *ExtraChargeController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ec.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

func statusForServiceError(err error) int {
	switch {
	case errors.Is(err, extrachargeService.ErrOrderNotFound),
		errors.Is(err, extrachargeService.ErrRequestNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, extrachargeService.ErrActiveRequest):
		return fiber.StatusConflict
	case errors.Is(err, extrachargeService.ErrNotOrderCustomer),
		errors.Is(err, extrachargeService.ErrNotRequester):
		return fiber.StatusForbidden
	case errors.Is(err, extrachargeService.ErrOrderClosed),
		errors.Is(err, extrachargeService.ErrNotPendingManager),
		errors.Is(err, extrachargeService.ErrNotPendingCustomer):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusBadRequest
	}
}

// Store opens a new extra-charge ask on an order.
func (ec *ExtraChargeController) Store(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req extrachargeTypes.ExtraChargeCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	created, err := ec.Service.Request(actor, req.OrderID, req.Reason, req.Price)
	if err != nil {
		return ec.sendResponseWithLog(c, statusForServiceError(err), types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  statusForServiceError(err),
		})
	}

	return ec.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Extra charge request created",
		Status:  fiber.StatusCreated,
		Data:    created,
	})
}

// Review records the manager decision on an order's pending request.
func (ec *ExtraChargeController) Review(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	orderID, err := strconv.ParseUint(c.Params("orderID"), 10, 64)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid order id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var req extrachargeTypes.ExtraChargeReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	reviewed, err := ec.Service.Review(actor, uint(orderID), req.Action, req.Price, req.Note)
	if err != nil {
		return ec.sendResponseWithLog(c, statusForServiceError(err), types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  statusForServiceError(err),
		})
	}

	return ec.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Extra charge request reviewed",
		Status:  fiber.StatusOK,
		Data:    reviewed,
	})
}

// Cancel withdraws the caller's own request before the manager has ruled.
func (ec *ExtraChargeController) Cancel(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	requestID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request id",
			Status:  fiber.StatusBadRequest,
		})
	}

	cancelled, err := ec.Service.Cancel(actor, uint(requestID))
	if err != nil {
		return ec.sendResponseWithLog(c, statusForServiceError(err), types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  statusForServiceError(err),
		})
	}

	return ec.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Extra charge request withdrawn",
		Status:  fiber.StatusOK,
		Data:    cancelled,
	})
}

// Respond records the customer answer on a forwarded request.
func (ec *ExtraChargeController) Respond(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	requestID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var req extrachargeTypes.ExtraChargeRespondRequest
	if err := c.BodyParser(&req); err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	answered, err := ec.Service.Respond(actor, uint(requestID), req.Answer)
	if err != nil {
		return ec.sendResponseWithLog(c, statusForServiceError(err), types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  statusForServiceError(err),
		})
	}

	return ec.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Extra charge request answered",
		Status:  fiber.StatusOK,
		Data:    answered,
	})
}

// IndexByOrder lists all requests raised on one order.
func (ec *ExtraChargeController) IndexByOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("orderID"), 10, 64)
	if err != nil {
		return ec.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid order id",
			Status:  fiber.StatusBadRequest,
		})
	}

	rows, err := ec.Service.ListByOrder(uint(orderID))
	if err != nil {
		logger.Error("Failed to list extra charge requests", err)
		return ec.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list extra charge requests",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return ec.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Extra charge requests listed",
		Status:  fiber.StatusOK,
		Data:    rows,
	})
}
