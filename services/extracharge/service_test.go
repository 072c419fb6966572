package extracharge

import (
	"fmt"
	"testing"

	"repair-ops/constants"
	"repair-ops/database"
	actionlogModel "repair-ops/models/actionlog"
	extrachargeModel "repair-ops/models/extracharge"
	notificationModel "repair-ops/models/notification"
	orderModel "repair-ops/models/order"
	"repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	notificationService "repair-ops/services/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T) (*ExtraChargeService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logs := actionlogService.NewActionLogService(db)
	notifs := notificationService.NewNotificationService(db, nil)
	return NewExtraChargeService(db, logs, notifs), db
}

func createUser(t *testing.T, db *gorm.DB, role string) *user.User {
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

func createOrder(t *testing.T, db *gorm.DB, customerID uint, status orderModel.OrderStatus) *orderModel.Order {
	t.Helper()
	ord := orderModel.Order{
		OrderNo:           "RP-TEST-" + uuid.NewString()[:6],
		CustomerID:        customerID,
		ItemName:          "leather jacket",
		TotalPrice:        12000,
		Status:            status,
		ExtraChargeStatus: orderModel.ExtraChargeNone,
		CreatedBy:         "test",
	}
	require.NoError(t, db.Create(&ord).Error)
	return &ord
}

func intPtr(v int) *int { return &v }

func TestWorkerRequestAwaitsManager(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	req, err := svc.Request(worker, ord.ID, "zipper replacement needed", nil)
	require.NoError(t, err)
	assert.Equal(t, extrachargeModel.RequestStatusPending, req.Status)
	assert.Nil(t, req.Price)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePendingManager, fresh.ExtraChargeStatus)

	// Exactly one audit row and a notification for the manager.
	var auditCount int64
	db.Model(&actionlogModel.ActionLog{}).Where("action_type = ?", constants.ActionReqExtraCharge).Count(&auditCount)
	assert.Equal(t, int64(1), auditCount)

	var notif notificationModel.Notification
	require.NoError(t, db.Where("user_id = ?", manager.ID).First(&notif).Error)
	assert.Equal(t, notificationModel.TypeExtraChargeRequested, notif.Type)
}

func TestManagerDirectRequestSkipsReview(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	req, err := svc.Request(manager, ord.ID, "extra lining", intPtr(3000))
	require.NoError(t, err)
	require.NotNil(t, req.Price)
	assert.Equal(t, 3000, *req.Price)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePendingCustomer, fresh.ExtraChargeStatus)

	var notif notificationModel.Notification
	require.NoError(t, db.Where("user_id = ?", customer.ID).First(&notif).Error)
	assert.Equal(t, notificationModel.TypeExtraChargeApproved, notif.Type)
}

func TestManagerRequestWithoutPriceRefused(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	_, err := svc.Request(manager, ord.ID, "no price given", nil)
	assert.ErrorIs(t, err, ErrPriceRequired)
}

func TestSecondActiveRequestRefused(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	_, err := svc.Request(worker, ord.ID, "first ask", nil)
	require.NoError(t, err)

	_, err = svc.Request(worker, ord.ID, "second ask", nil)
	assert.ErrorIs(t, err, ErrActiveRequest)
}

func TestRequestOnClosedOrderRefused(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusDelivered)

	_, err := svc.Request(worker, ord.ID, "too late", nil)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestManagerApproveForwardsToCustomer(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	_, err := svc.Request(worker, ord.ID, "button set", nil)
	require.NoError(t, err)

	req, err := svc.Review(manager, ord.ID, ActionApprove, intPtr(4500), nil)
	require.NoError(t, err)
	require.NotNil(t, req.Price)
	assert.Equal(t, 4500, *req.Price)
	assert.Equal(t, extrachargeModel.RequestStatusPending, req.Status)
	require.NotNil(t, req.ReviewedByID)
	assert.Equal(t, manager.ID, *req.ReviewedByID)
	assert.NotNil(t, req.ReviewedAt)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePendingCustomer, fresh.ExtraChargeStatus)
}

func TestManagerApproveRequiresPrice(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	_, err := svc.Request(worker, ord.ID, "needs a price", nil)
	require.NoError(t, err)

	_, err = svc.Review(manager, ord.ID, ActionApprove, nil, nil)
	assert.ErrorIs(t, err, ErrPriceRequired)
}

func TestManagerRejectReopensOrder(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	_, err := svc.Request(worker, ord.ID, "not needed after all", nil)
	require.NoError(t, err)

	note := "covered by the base price"
	req, err := svc.Review(manager, ord.ID, ActionReject, nil, &note)
	require.NoError(t, err)
	assert.Equal(t, extrachargeModel.RequestStatusCancelledByManager, req.Status)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargeNone, fresh.ExtraChargeStatus)
	assert.Equal(t, orderModel.OrderStatusProcessing, fresh.Status)

	// The requesting worker hears back.
	var notif notificationModel.Notification
	require.NoError(t, db.Where("user_id = ?", worker.ID).First(&notif).Error)
	assert.Equal(t, notificationModel.TypeExtraChargeAnswered, notif.Type)
}

func TestReviewWithoutPendingManagerState(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	_, err := svc.Review(manager, ord.ID, ActionApprove, intPtr(1000), nil)
	assert.ErrorIs(t, err, ErrNotPendingManager)
}

func TestCustomerAcceptClosesAsPaid(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	created, err := svc.Request(manager, ord.ID, "special thread", intPtr(2000))
	require.NoError(t, err)

	req, err := svc.Respond(customer, created.ID, AnswerAccepted)
	require.NoError(t, err)
	assert.Equal(t, extrachargeModel.RequestStatusPaid, req.Status)
	assert.NotNil(t, req.RespondedAt)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePaid, fresh.ExtraChargeStatus)
}

func TestCustomerRejectClosesAsRejected(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	created, err := svc.Request(manager, ord.ID, "optional repair", intPtr(2000))
	require.NoError(t, err)

	req, err := svc.Respond(customer, created.ID, AnswerRejected)
	require.NoError(t, err)
	assert.Equal(t, extrachargeModel.RequestStatusRejected, req.Status)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargeRejected, fresh.ExtraChargeStatus)
}

func TestRespondByWrongCustomerRefused(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	other := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	created, err := svc.Request(manager, ord.ID, "not yours", intPtr(2000))
	require.NoError(t, err)

	_, err = svc.Respond(other, created.ID, AnswerAccepted)
	assert.ErrorIs(t, err, ErrNotOrderCustomer)
}

func TestRespondTwiceRefused(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	created, err := svc.Request(manager, ord.ID, "answer once", intPtr(2000))
	require.NoError(t, err)

	_, err = svc.Respond(customer, created.ID, AnswerRejected)
	require.NoError(t, err)

	_, err = svc.Respond(customer, created.ID, AnswerAccepted)
	assert.ErrorIs(t, err, ErrNotPendingCustomer)
}

func TestMarkPaidTx(t *testing.T) {
	svc, db := newTestService(t)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	created, err := svc.Request(manager, ord.ID, "paid through the gateway", intPtr(5000))
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.MarkPaidTx(tx, created.ID, customer.Uuid)
		return err
	})
	require.NoError(t, err)

	var fresh extrachargeModel.ExtraChargeRequest
	require.NoError(t, db.First(&fresh, created.ID).Error)
	assert.Equal(t, extrachargeModel.RequestStatusPaid, fresh.Status)

	var freshOrd orderModel.Order
	require.NoError(t, db.First(&freshOrd, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePaid, freshOrd.ExtraChargeStatus)
}

func TestWorkerWithdrawsOwnRequest(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	req, err := svc.Request(worker, ord.ID, "thought the lining was torn", nil)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(worker, req.ID)
	require.NoError(t, err)
	assert.Equal(t, extrachargeModel.RequestStatusCancelledByWorker, cancelled.Status)
	assert.NotNil(t, cancelled.RespondedAt)

	// The order can take a fresh request again.
	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargeNone, fresh.ExtraChargeStatus)

	var auditCount int64
	db.Model(&actionlogModel.ActionLog{}).Where("action_type = ?", constants.ActionCancelExtraCharge).Count(&auditCount)
	assert.Equal(t, int64(1), auditCount)

	var notif notificationModel.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", manager.ID, notificationModel.TypeExtraChargeAnswered).First(&notif).Error)

	_, err = svc.Request(worker, ord.ID, "buttons missing too", nil)
	require.NoError(t, err)
}

func TestWithdrawByAnotherWorkerRefused(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	other := createUser(t, db, constants.RoleWorker)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	req, err := svc.Request(worker, ord.ID, "needs new zipper", nil)
	require.NoError(t, err)

	_, err = svc.Cancel(other, req.ID)
	assert.ErrorIs(t, err, ErrNotRequester)

	var fresh orderModel.Order
	require.NoError(t, db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePendingManager, fresh.ExtraChargeStatus)
}

func TestWithdrawAfterReviewRefused(t *testing.T) {
	svc, db := newTestService(t)
	worker := createUser(t, db, constants.RoleWorker)
	manager := createUser(t, db, constants.RoleManager)
	customer := createUser(t, db, constants.RoleCustomer)
	ord := createOrder(t, db, customer.ID, orderModel.OrderStatusProcessing)

	req, err := svc.Request(worker, ord.ID, "ripped seam", nil)
	require.NoError(t, err)
	_, err = svc.Review(manager, ord.ID, ActionApprove, intPtr(2500), nil)
	require.NoError(t, err)

	_, err = svc.Cancel(worker, req.ID)
	assert.ErrorIs(t, err, ErrNotPendingManager)
}
