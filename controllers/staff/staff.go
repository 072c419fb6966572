package staff

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"repair-ops/constants"
	"repair-ops/logger"
	userModel "repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	"repair-ops/types"
	staffTypes "repair-ops/types/staff"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffController manages staff accounts. All routes are admin-gated by the
// router; deletion additionally refuses admin targets outright.
type StaffController struct {
	DB         *gorm.DB
	Logger     *logger.AsyncLogger
	ActionLogs *actionlogService.ActionLogService
}

// NewStaffController creates a new staff controller
func NewStaffController(db *gorm.DB, asyncLogger *logger.AsyncLogger, actionLogs *actionlogService.ActionLogService) *StaffController {
	return &StaffController{
		DB:         db,
		Logger:     asyncLogger,
		ActionLogs: actionLogs,
	}
}

func (sc *StaffController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	sc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Index lists staff accounts with optional role filter and paging.
func (sc *StaffController) Index(c *fiber.Ctx) error {
	page, perPage, offset := utils.Pagination(c)

	db := sc.DB.Model(&userModel.User{}).
		Where("role IN ? AND deleted_at IS NULL", constants.StaffRoles)
	if role := c.Query("role"); role != "" {
		db = db.Where("role = ?", role)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		logger.Error("Failed to count staff", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list staff",
			Status:  fiber.StatusInternalServerError,
		})
	}

	var users []userModel.User
	if err := db.Order("id").Limit(perPage).Offset(offset).Find(&users).Error; err != nil {
		logger.Error("Failed to list staff", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list staff",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Staff listed",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"staff":    users,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		},
	})
}

// Store creates a staff account with a role.
func (sc *StaffController) Store(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req staffTypes.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash staff password", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to create staff account",
			Status:  fiber.StatusInternalServerError,
		})
	}

	newStaff := userModel.User{
		Uuid:         uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		LegalName:    req.LegalName,
		Phone:        req.Phone,
		Email:        req.Email,
		Role:         req.Role,
		CreatedByID:  &actor.ID,
	}
	if err := sc.DB.Create(&newStaff).Error; err != nil {
		logger.Error("Failed to create staff account", err)
		return sc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
			Success: false,
			Message: "Username, phone or email already in use",
			Status:  fiber.StatusConflict,
		})
	}

	logger.Success(fmt.Sprintf("Staff account %s created with role %s", newStaff.Username, newStaff.Role))
	return sc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Staff account created",
		Status:  fiber.StatusCreated,
		Data:    newStaff,
	})
}

// Update patches a staff account's profile, role or password.
func (sc *StaffController) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid staff id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var req staffTypes.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	var target userModel.User
	err = sc.DB.Where("id = ? AND role IN ? AND deleted_at IS NULL", id, constants.StaffRoles).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Staff account not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load staff account", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to update staff account",
			Status:  fiber.StatusInternalServerError,
		})
	}

	updates := map[string]interface{}{}
	if req.LegalName != nil {
		updates["legal_name"] = *req.LegalName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			logger.Error("Failed to hash staff password", err)
			return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
				Success: false,
				Message: "Failed to update staff account",
				Status:  fiber.StatusInternalServerError,
			})
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Nothing to update",
			Status:  fiber.StatusBadRequest,
		})
	}

	if err := sc.DB.Model(&target).Updates(updates).Error; err != nil {
		logger.Error("Failed to update staff account", err)
		return sc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
			Success: false,
			Message: "Phone or email already in use",
			Status:  fiber.StatusConflict,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Staff account updated",
		Status:  fiber.StatusOK,
		Data:    target,
	})
}

// Delete soft-deletes a staff account. Admin accounts can never be deleted
// through the API, no matter who asks.
func (sc *StaffController) Delete(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid staff id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var target userModel.User
	err = sc.DB.Where("id = ? AND role IN ? AND deleted_at IS NULL", id, constants.StaffRoles).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Staff account not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load staff account", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to delete staff account",
			Status:  fiber.StatusInternalServerError,
		})
	}

	if target.Role == constants.RoleAdmin || target.Role == constants.RoleSuperAdmin {
		return sc.sendResponseWithLog(c, fiber.StatusForbidden, types.ApiResponse{
			Success: false,
			Message: "Admin accounts cannot be deleted",
			Status:  fiber.StatusForbidden,
			Error:   "ADMIN_DELETE_REFUSED",
		})
	}

	now := time.Now()
	if err := sc.DB.Model(&target).Update("deleted_at", now).Error; err != nil {
		logger.Error("Failed to delete staff account", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to delete staff account",
			Status:  fiber.StatusInternalServerError,
		})
	}

	sc.ActionLogs.Record(actor, constants.ActionDeleteStaff, nil,
		fmt.Sprintf("staff account %s (%s) deleted", target.Username, target.Role))

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Staff account deleted",
		Status:  fiber.StatusOK,
	})
}
