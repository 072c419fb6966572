package staff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"repair-ops/constants"
	"repair-ops/database"
	"repair-ops/logger"
	actionlogModel "repair-ops/models/actionlog"
	"repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	"repair-ops/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	app   *fiber.App
	db    *gorm.DB
	admin *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	database.DB = db

	admin := createStaff(t, db, constants.RoleAdmin)

	asyncLogger := logger.NewAsyncLogger(db)
	actionLogs := actionlogService.NewActionLogService(db)
	controller := NewStaffController(db, asyncLogger, actionLogs)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"uuid":     admin.Uuid,
			"username": admin.Username,
			"role":     admin.Role,
		})
		return c.Next()
	})
	app.Get("/api/staff", controller.Index)
	app.Post("/api/staff", controller.Store)
	app.Patch("/api/staff/:id", controller.Update)
	app.Delete("/api/staff/:id", controller.Delete)

	return &fixture{app: app, db: db, admin: admin}
}

func createStaff(t *testing.T, db *gorm.DB, role string) *user.User {
	t.Helper()
	u := user.User{
		Uuid:         uuid.NewString(),
		Username:     role + "-" + uuid.NewString()[:8],
		PasswordHash: "x",
		LegalName:    role + " user",
		Phone:        uuid.NewString()[:12],
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) (*http.Response, types.ApiResponse) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var api types.ApiResponse
	require.NoError(t, json.Unmarshal(raw, &api))
	return resp, api
}

func TestStoreCreatesStaffAccount(t *testing.T) {
	f := newFixture(t)

	resp, api := doJSON(t, f.app, http.MethodPost, "/api/staff", fiber.Map{
		"username":   "worker-jane",
		"password":   "a-long-password",
		"legal_name": "Jane Doe",
		"phone":      "010-1111-2222",
		"role":       constants.RoleWorker,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, api.Success)

	var created user.User
	require.NoError(t, f.db.Where("username = ?", "worker-jane").First(&created).Error)
	assert.Equal(t, constants.RoleWorker, created.Role)
	assert.NotEqual(t, "a-long-password", created.PasswordHash)
	require.NotNil(t, created.CreatedByID)
	assert.Equal(t, f.admin.ID, *created.CreatedByID)
}

func TestStoreRefusesCustomerRole(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, http.MethodPost, "/api/staff", fiber.Map{
		"username":   "sneaky",
		"password":   "a-long-password",
		"legal_name": "Sneaky",
		"phone":      "010-3333-4444",
		"role":       constants.RoleCustomer,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStoreDuplicateUsernameConflicts(t *testing.T) {
	f := newFixture(t)
	existing := createStaff(t, f.db, constants.RoleWorker)

	resp, _ := doJSON(t, f.app, http.MethodPost, "/api/staff", fiber.Map{
		"username":   existing.Username,
		"password":   "a-long-password",
		"legal_name": "Duplicate",
		"phone":      "010-5555-6666",
		"role":       constants.RoleWorker,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDeleteWorkerSoftDeletes(t *testing.T) {
	f := newFixture(t)
	worker := createStaff(t, f.db, constants.RoleWorker)

	resp, api := doJSON(t, f.app, http.MethodDelete, fmt.Sprintf("/api/staff/%d", worker.ID), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, api.Success)

	var fresh user.User
	require.NoError(t, f.db.First(&fresh, worker.ID).Error)
	assert.NotNil(t, fresh.DeletedAt)

	var audit actionlogModel.ActionLog
	require.NoError(t, f.db.Where("action_type = ?", constants.ActionDeleteStaff).First(&audit).Error)
}

func TestDeleteAdminAlwaysRefused(t *testing.T) {
	f := newFixture(t)
	otherAdmin := createStaff(t, f.db, constants.RoleAdmin)
	superAdmin := createStaff(t, f.db, constants.RoleSuperAdmin)

	for _, target := range []*user.User{otherAdmin, superAdmin} {
		resp, api := doJSON(t, f.app, http.MethodDelete, fmt.Sprintf("/api/staff/%d", target.ID), nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "ADMIN_DELETE_REFUSED", api.Error)

		var fresh user.User
		require.NoError(t, f.db.First(&fresh, target.ID).Error)
		assert.Nil(t, fresh.DeletedAt)
	}
}

func TestDeleteUnknownStaffNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, http.MethodDelete, "/api/staff/9999", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdatePatchesFields(t *testing.T) {
	f := newFixture(t)
	worker := createStaff(t, f.db, constants.RoleWorker)

	resp, _ := doJSON(t, f.app, http.MethodPatch, fmt.Sprintf("/api/staff/%d", worker.ID), fiber.Map{
		"legal_name": "Renamed Worker",
		"role":       constants.RoleManager,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fresh user.User
	require.NoError(t, f.db.First(&fresh, worker.ID).Error)
	assert.Equal(t, "Renamed Worker", fresh.LegalName)
	assert.Equal(t, constants.RoleManager, fresh.Role)
}

func TestIndexListsStaffOnly(t *testing.T) {
	f := newFixture(t)
	createStaff(t, f.db, constants.RoleWorker)
	createStaff(t, f.db, constants.RoleCustomer)

	resp, api := doJSON(t, f.app, http.MethodGet, "/api/staff", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, ok := api.Data.(map[string]interface{})
	require.True(t, ok)
	// The admin from the fixture plus the worker; the customer is filtered.
	assert.Equal(t, float64(2), data["total"])
}
