package setting

import (
	"errors"
	"strconv"
	"time"

	"repair-ops/logger"
	noticeModel "repair-ops/models/notice"
	settingModel "repair-ops/models/setting"
	"repair-ops/types"
	settingTypes "repair-ops/types/setting"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SettingController manages typed key/value settings and site notices.
type SettingController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

// NewSettingController creates a new setting controller
func NewSettingController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *SettingController {
	return &SettingController{
		DB:     db,
		Logger: asyncLogger,
	}
}

func (sc *SettingController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	sc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Index lists all settings.
func (sc *SettingController) Index(c *fiber.Ctx) error {
	var rows []settingModel.Setting
	if err := sc.DB.Order("setting_key").Find(&rows).Error; err != nil {
		logger.Error("Failed to list settings", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list settings",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Settings listed",
		Status:  fiber.StatusOK,
		Data:    rows,
	})
}

// Put creates or updates one setting.
func (sc *SettingController) Put(c *fiber.Ctx) error {
	var req settingTypes.SettingPutRequest
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

	if err := settingModel.Put(sc.DB, req.Key, req.Value, req.Type); err != nil {
		logger.Error("Failed to store setting", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to store setting",
			Status:  fiber.StatusInternalServerError,
		})
	}

	logger.Success("Setting updated: " + req.Key)
	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Setting stored",
		Status:  fiber.StatusOK,
		Data:    fiber.Map{"key": req.Key, "value": req.Value, "type": req.Type},
	})
}

// Notices lists notices. Staff see everything; everyone else only
// published ones, pinned first.
func (sc *SettingController) Notices(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	db := sc.DB.Where("deleted_at IS NULL")
	if !actor.IsStaff() {
		db = db.Where("published = ?", true)
	}

	var rows []noticeModel.Notice
	if err := db.Order("pinned DESC, id DESC").Find(&rows).Error; err != nil {
		logger.Error("Failed to list notices", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list notices",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Notices listed",
		Status:  fiber.StatusOK,
		Data:    rows,
	})
}

// StoreNotice publishes a new notice.
func (sc *SettingController) StoreNotice(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req settingTypes.NoticeCreateRequest
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

	notice := noticeModel.Notice{
		Title:     req.Title,
		Body:      req.Body,
		Pinned:    req.Pinned,
		Published: req.Published,
		CreatedBy: actor.Uuid,
	}
	if err := sc.DB.Create(&notice).Error; err != nil {
		logger.Error("Failed to create notice", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to create notice",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Notice created",
		Status:  fiber.StatusCreated,
		Data:    notice,
	})
}

// UpdateNotice patches a notice.
func (sc *SettingController) UpdateNotice(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid notice id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var req settingTypes.NoticeUpdateRequest
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

	var notice noticeModel.Notice
	err = sc.DB.Where("id = ? AND deleted_at IS NULL", id).First(&notice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Notice not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load notice", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to update notice",
			Status:  fiber.StatusInternalServerError,
		})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.Pinned != nil {
		updates["pinned"] = *req.Pinned
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if len(updates) == 0 {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Nothing to update",
			Status:  fiber.StatusBadRequest,
		})
	}

	if err := sc.DB.Model(&notice).Updates(updates).Error; err != nil {
		logger.Error("Failed to update notice", err)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to update notice",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Notice updated",
		Status:  fiber.StatusOK,
		Data:    notice,
	})
}

// DeleteNotice soft-deletes a notice.
func (sc *SettingController) DeleteNotice(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return sc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid notice id",
			Status:  fiber.StatusBadRequest,
		})
	}

	now := time.Now()
	res := sc.DB.Model(&noticeModel.Notice{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", now)
	if res.Error != nil {
		logger.Error("Failed to delete notice", res.Error)
		return sc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to delete notice",
			Status:  fiber.StatusInternalServerError,
		})
	}
	if res.RowsAffected == 0 {
		return sc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Notice not found",
			Status:  fiber.StatusNotFound,
		})
	}

	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Notice deleted",
		Status:  fiber.StatusOK,
	})
}
