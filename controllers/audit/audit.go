package audit

import (
	"strconv"

	"repair-ops/logger"
	actionlogService "repair-ops/services/actionlog"
	"repair-ops/types"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuditController exposes the action log for admin review.
type AuditController struct {
	DB         *gorm.DB
	Logger     *logger.AsyncLogger
	ActionLogs *actionlogService.ActionLogService
}

// NewAuditController creates a new audit controller
func NewAuditController(db *gorm.DB, asyncLogger *logger.AsyncLogger, actionLogs *actionlogService.ActionLogService) *AuditController {
	return &AuditController{
		DB:         db,
		Logger:     asyncLogger,
		ActionLogs: actionLogs,
	}
}

func (ac *AuditController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ac.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Index lists audit rows newest-first, filterable by actor, action type
// and order.
func (ac *AuditController) Index(c *fiber.Ctx) error {
	page, perPage, offset := utils.Pagination(c)

	q := actionlogService.Query{
		ActionType: c.Query("action_type"),
		Limit:      perPage,
		Offset:     offset,
	}
	if v := c.Query("actor_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			actorID := uint(id)
			q.ActorID = &actorID
		}
	}
	if v := c.Query("order_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			orderID := uint(id)
			q.OrderID = &orderID
		}
	}

	rows, total, err := ac.ActionLogs.List(q)
	if err != nil {
		logger.Error("Failed to list action logs", err)
		return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list action logs",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Action logs listed",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"logs":     rows,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		},
	})
}
