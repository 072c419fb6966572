package auth

import (
	"errors"
	"os"
	"time"

	"repair-ops/logger"
	userModel "repair-ops/models/user"
	"repair-ops/types"
	authTypes "repair-ops/types/auth"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// AuthController handles login and account self-service.
type AuthController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

// NewAuthController creates a new auth controller
func NewAuthController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *AuthController {
	return &AuthController{
		DB:     db,
		Logger: asyncLogger,
	}
}

func (ac *AuthController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ac.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Login checks credentials and issues a signed token carrying the role.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req authTypes.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse login body", err)
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	var u userModel.User
	err := ac.DB.Where("username = ? AND deleted_at IS NULL", req.Username).First(&u).Error
	if err != nil || !utils.CheckPassword(u.PasswordHash, req.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Login lookup failed", err)
		}
		return ac.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: "Invalid username or password",
			Status:  fiber.StatusUnauthorized,
		})
	}

	token, err := ac.issueToken(&u)
	if err != nil {
		logger.Error("Failed to sign token", err)
		return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to issue token",
			Status:  fiber.StatusInternalServerError,
		})
	}

	logger.Success("User logged in: " + u.Username)
	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Login successful",
		Status:  fiber.StatusOK,
		Token:   token,
		Data:    u,
	})
}

func (ac *AuthController) issueToken(u *userModel.User) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}

	claims := jwt.MapClaims{
		"uuid":     u.Uuid,
		"username": u.Username,
		"role":     u.Role,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Profile returns the authenticated user.
func (ac *AuthController) Profile(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Profile fetched",
		Status:  fiber.StatusOK,
		Data:    u,
	})
}

// ChangePassword verifies the old password and stores a new hash.
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req authTypes.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return ac.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	if !utils.CheckPassword(u.PasswordHash, req.OldPassword) {
		return ac.sendResponseWithLog(c, fiber.StatusForbidden, types.ApiResponse{
			Success: false,
			Message: "Current password is incorrect",
			Status:  fiber.StatusForbidden,
		})
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to update password",
			Status:  fiber.StatusInternalServerError,
		})
	}

	if err := ac.DB.Model(&userModel.User{}).Where("id = ?", u.ID).
		Update("password_hash", hash).Error; err != nil {
		logger.Error("Failed to store new password", err)
		return ac.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to update password",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Password changed",
		Status:  fiber.StatusOK,
	})
}
