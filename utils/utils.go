package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"repair-ops/database"
	"repair-ops/models/user"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GetUserByUUID loads a user by the uuid claim carried in a token.
func GetUserByUUID(uuid string) (*user.User, error) {
	var u user.User
	err := database.DB.Where("uuid = ? AND deleted_at IS NULL", uuid).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CurrentUser resolves the authenticated user from the JWT claims the auth
// middleware stored in c.Locals.
func CurrentUser(c *fiber.Ctx) (*user.User, error) {
	claims, ok := c.Locals("user").(map[string]interface{})
	if !ok {
		return nil, errors.New("invalid user claims")
	}
	uuid, ok := claims["uuid"].(string)
	if !ok || uuid == "" {
		return nil, errors.New("uuid not found in token")
	}
	return GetUserByUUID(uuid)
}

// GenerateOrderNo builds a unique order number like RP-20260829-483920.
func GenerateOrderNo() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RP-%s-%06d", time.Now().Format("20060102"), n.Int64()), nil
}

// Pagination reads page/per_page query params with sane bounds.
func Pagination(c *fiber.Ctx) (page, perPage, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.Query("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage, (page - 1) * perPage
}
