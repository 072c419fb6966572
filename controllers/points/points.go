package points

import (
	"errors"
	"fmt"
	"strconv"

	"repair-ops/constants"
	"repair-ops/logger"
	userModel "repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	pointsService "repair-ops/services/points"
	"repair-ops/types"
	pointsTypes "repair-ops/types/points"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PointController exposes the loyalty-point ledger.
type PointController struct {
	DB         *gorm.DB
	Logger     *logger.AsyncLogger
	Points     *pointsService.PointService
	ActionLogs *actionlogService.ActionLogService
}

// NewPointController creates a new point controller
func NewPointController(db *gorm.DB, asyncLogger *logger.AsyncLogger, points *pointsService.PointService, actionLogs *actionlogService.ActionLogService) *PointController {
	return &PointController{
		DB:         db,
		Logger:     asyncLogger,
		Points:     points,
		ActionLogs: actionLogs,
	}
}

func (pc *PointController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	pc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Adjust credits or debits a user's balance by an admin decision.
func (pc *PointController) Adjust(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req pointsTypes.PointAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	entry, err := pc.Points.AdminAdjust(actor.ID, req.UserID, req.Amount, req.Reason)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, pointsService.ErrInsufficientPoints) {
			status = fiber.StatusUnprocessableEntity
		}
		return pc.sendResponseWithLog(c, status, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  status,
		})
	}

	pc.ActionLogs.Record(actor, constants.ActionAdjustPoints, nil,
		fmt.Sprintf("points of user %d adjusted by %d: %s", req.UserID, req.Amount, req.Reason))

	return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Points adjusted",
		Status:  fiber.StatusOK,
		Data:    entry,
	})
}

// History returns a user's ledger and cached balance. Customers can only
// read their own.
func (pc *PointController) History(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	userID, err := strconv.ParseUint(c.Params("userID"), 10, 64)
	if err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid user id",
			Status:  fiber.StatusBadRequest,
		})
	}
	if !actor.IsStaff() && actor.ID != uint(userID) {
		return pc.sendResponseWithLog(c, fiber.StatusForbidden, types.ApiResponse{
			Success: false,
			Message: "Not your ledger",
			Status:  fiber.StatusForbidden,
		})
	}

	var holder userModel.User
	if err := pc.DB.Where("id = ? AND deleted_at IS NULL", userID).First(&holder).Error; err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "User not found",
			Status:  fiber.StatusNotFound,
		})
	}

	page, perPage, offset := utils.Pagination(c)
	rows, total, err := pc.Points.History(uint(userID), perPage, offset)
	if err != nil {
		logger.Error("Failed to load point history", err)
		return pc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to load point history",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Point history fetched",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"balance":      holder.PointBalance,
			"total_earned": holder.TotalEarnedPoints,
			"total_used":   holder.TotalUsedPoints,
			"transactions": rows,
			"total":        total,
			"page":         page,
			"per_page":     perPage,
		},
	})
}

// Expire runs the overdue-point sweep on demand.
func (pc *PointController) Expire(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	affected, err := pc.Points.ExpireOverdue()
	if err != nil {
		logger.Error("Point expiry sweep failed", err)
		return pc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Point expiry sweep failed",
			Status:  fiber.StatusInternalServerError,
		})
	}

	pc.ActionLogs.Record(actor, constants.ActionExpirePoints, nil,
		fmt.Sprintf("point expiry sweep touched %d users", affected))

	return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Point expiry sweep completed",
		Status:  fiber.StatusOK,
		Data:    fiber.Map{"users_affected": affected},
	})
}
