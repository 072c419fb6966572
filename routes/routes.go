package routes

import (
	"os"

	"repair-ops/constants"
	"repair-ops/controllers/audit"
	"repair-ops/controllers/auth"
	"repair-ops/controllers/extracharge"
	"repair-ops/controllers/media"
	"repair-ops/controllers/notification"
	"repair-ops/controllers/order"
	"repair-ops/controllers/payment"
	"repair-ops/controllers/points"
	"repair-ops/controllers/setting"
	"repair-ops/controllers/staff"
	"repair-ops/httpServices/paymentgw"
	"repair-ops/httpServices/push"
	"repair-ops/httpServices/videostore"
	"repair-ops/jobqueue"
	"repair-ops/logger"
	"repair-ops/middleware"
	"repair-ops/objectstorage"
	actionlogService "repair-ops/services/actionlog"
	extrachargeService "repair-ops/services/extracharge"
	notificationService "repair-ops/services/notification"
	pointsService "repair-ops/services/points"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, queue *jobqueue.Queue,
	videoStore *videostore.Client, objectStorage *objectstorage.Client) {
	gateway, err := paymentgw.NewClient(os.Getenv("PAYMENT_GW_BASE_URL"), os.Getenv("PAYMENT_GW_SECRET_KEY"))
	if err != nil {
		logger.Fatal("Payment gateway is not configured: " + err.Error())
	}
	pushClient := push.NewClient(os.Getenv("PUSH_BASE_URL"), os.Getenv("PUSH_API_KEY"))
	asyncLogger := logger.NewAsyncLogger(db)

	actionLogs := actionlogService.NewActionLogService(db)
	notifications := notificationService.NewNotificationService(db, pushClient)
	pointLedger := pointsService.NewPointService(db)
	extraCharges := extrachargeService.NewExtraChargeService(db, actionLogs, notifications)

	authController := auth.NewAuthController(db, asyncLogger)
	staffController := staff.NewStaffController(db, asyncLogger, actionLogs)
	orderController := order.NewOrderController(db, asyncLogger, actionLogs, notifications)
	extraChargeController := extracharge.NewExtraChargeController(db, asyncLogger, extraCharges)
	paymentController := payment.NewPaymentController(db, asyncLogger, gateway, pointLedger, extraCharges, notifications, actionLogs)
	pointController := points.NewPointController(db, asyncLogger, pointLedger, actionLogs)
	mediaController := media.NewMediaController(db, asyncLogger, videoStore, objectStorage, queue)
	notificationController := notification.NewNotificationController(db, asyncLogger, notifications)
	settingController := setting.NewSettingController(db, asyncLogger)
	auditController := audit.NewAuditController(db, asyncLogger, actionLogs)

	// Start the async logger processing goroutine
	go asyncLogger.ProcessLog()

	// Index route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Post("/login", authController.Login)
	api.Post("/payments/webhook", paymentController.Webhook)

	/*=============================================================================
	| Account Routes
	===============================================================================*/
	authGroup := api.Group("/auth").Use(middleware.RequireAuthentication())
	authGroup.Get("/profile", authController.Profile)
	authGroup.Post("/change-password", authController.ChangePassword)

	/*=============================================================================
	| Staff Management Routes
	===============================================================================*/
	staffGroup := api.Group("/staff").Use(middleware.RequireRoles(
		constants.RoleSuperAdmin,
		constants.RoleAdmin,
	))
	staffGroup.Get("/", staffController.Index)
	staffGroup.Post("/", staffController.Store)
	staffGroup.Patch("/:id", staffController.Update)
	staffGroup.Delete("/:id", staffController.Delete)

	/*=============================================================================
	| Order Routes
	===============================================================================*/
	orderGroup := api.Group("/orders")
	orderGroup.Post("/waybill-slip/parse", middleware.RequireRoles(constants.StaffRoles...), orderController.ParseWaybillSlip)
	orderGroup.Post("/", middleware.RequireRoles(constants.StaffRoles...), orderController.Store)
	orderGroup.Get("/", middleware.RequireAuthentication(), orderController.Index)
	orderGroup.Get("/:id", middleware.RequireAuthentication(), orderController.Show)
	orderGroup.Patch("/:id/status", middleware.RequireRoles(constants.StaffRoles...), orderController.UpdateStatus)
	orderGroup.Post("/:id/waybill", middleware.RequireRoles(constants.StaffRoles...), orderController.AttachWaybill)

	/*=============================================================================
	| Extra Charge Routes
	===============================================================================*/
	extraGroup := api.Group("/extra-charges")
	extraGroup.Post("/", middleware.RequireRoles(constants.StaffRoles...), extraChargeController.Store)
	extraGroup.Get("/order/:orderID", middleware.RequireRoles(constants.StaffRoles...), extraChargeController.IndexByOrder)
	extraGroup.Post("/:orderID/review", middleware.RequireRoles(constants.ManagerRoles...), extraChargeController.Review)
	extraGroup.Post("/:id/cancel", middleware.RequireRoles(constants.RoleWorker), extraChargeController.Cancel)
	extraGroup.Post("/:id/respond", middleware.RequireRoles(constants.RoleCustomer), extraChargeController.Respond)

	/*=============================================================================
	| Payment Routes
	===============================================================================*/
	paymentGroup := api.Group("/payments")
	paymentGroup.Post("/confirm", middleware.RequireRoles(constants.RoleCustomer), paymentController.Confirm)
	paymentGroup.Post("/:paymentKey/cancel", middleware.RequireRoles(constants.ManagerRoles...), paymentController.Cancel)
	paymentGroup.Get("/:paymentKey", middleware.RequireRoles(constants.StaffRoles...), paymentController.Show)

	/*=============================================================================
	| Point Routes
	===============================================================================*/
	pointGroup := api.Group("/points")
	pointGroup.Post("/adjust", middleware.RequireRoles(constants.RoleSuperAdmin, constants.RoleAdmin), pointController.Adjust)
	pointGroup.Post("/expire", middleware.RequireRoles(constants.RoleSuperAdmin, constants.RoleAdmin), pointController.Expire)
	pointGroup.Get("/:userID", middleware.RequireAuthentication(), pointController.History)

	/*=============================================================================
	| Media Routes
	===============================================================================*/
	mediaGroup := api.Group("/media")
	mediaGroup.Post("/upload", middleware.RequireRoles(constants.StaffRoles...), mediaController.Upload)
	mediaGroup.Post("/uploads", middleware.RequireRoles(constants.StaffRoles...), mediaController.CreateResumable)
	mediaGroup.Patch("/uploads/:id", middleware.RequireRoles(constants.StaffRoles...), mediaController.UploadChunk)
	mediaGroup.Post("/uploads/:id/complete", middleware.RequireRoles(constants.StaffRoles...), mediaController.CompleteResumable)
	mediaGroup.Post("/merge", middleware.RequireRoles(constants.ManagerRoles...), mediaController.Merge)
	mediaGroup.Get("/", middleware.RequireRoles(constants.StaffRoles...), mediaController.Index)
	mediaGroup.Delete("/:id", middleware.RequireRoles(constants.ManagerRoles...), mediaController.Delete)

	/*=============================================================================
	| Notification Routes
	===============================================================================*/
	notificationGroup := api.Group("/notifications").Use(middleware.RequireAuthentication())
	notificationGroup.Get("/", notificationController.Index)
	notificationGroup.Post("/read-all", notificationController.MarkAllRead)
	notificationGroup.Patch("/:id/read", notificationController.MarkRead)

	deviceGroup := api.Group("/device-tokens").Use(middleware.RequireAuthentication())
	deviceGroup.Post("/", notificationController.RegisterDevice)
	deviceGroup.Delete("/", notificationController.RemoveDevice)

	/*=============================================================================
	| Settings & Notice Routes
	===============================================================================*/
	settingGroup := api.Group("/settings").Use(middleware.RequireRoles(
		constants.RoleSuperAdmin,
		constants.RoleAdmin,
	))
	settingGroup.Get("/", settingController.Index)
	settingGroup.Put("/", settingController.Put)

	noticeGroup := api.Group("/notices")
	noticeGroup.Get("/", middleware.RequireAuthentication(), settingController.Notices)
	noticeGroup.Post("/", middleware.RequireRoles(constants.RoleSuperAdmin, constants.RoleAdmin), settingController.StoreNotice)
	noticeGroup.Patch("/:id", middleware.RequireRoles(constants.RoleSuperAdmin, constants.RoleAdmin), settingController.UpdateNotice)
	noticeGroup.Delete("/:id", middleware.RequireRoles(constants.RoleSuperAdmin, constants.RoleAdmin), settingController.DeleteNotice)

	/*=============================================================================
	| Audit Routes
	===============================================================================*/
	api.Get("/action-logs", middleware.RequireRoles(constants.ManagerRoles...), auditController.Index)
}
