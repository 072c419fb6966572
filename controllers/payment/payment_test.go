package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"repair-ops/constants"
	"repair-ops/database"
	"repair-ops/httpServices/paymentgw"
	"repair-ops/logger"
	extrachargeModel "repair-ops/models/extracharge"
	orderModel "repair-ops/models/order"
	paymentModel "repair-ops/models/payment"
	pointsModel "repair-ops/models/points"
	"repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	extrachargeService "repair-ops/services/extracharge"
	notificationService "repair-ops/services/notification"
	pointsService "repair-ops/services/points"
	"repair-ops/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeGateway counts every request the controller makes so tests can assert
// that a mismatch never reaches the gateway.
type fakeGateway struct {
	server *httptest.Server
	calls  int
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	fg := &fakeGateway{}
	fg.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fg.calls++

		if strings.HasSuffix(r.URL.Path, "/cancel") {
			var req paymentgw.CancelRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			now := time.Now()
			cancel := paymentgw.Cancel{CancelReason: req.CancelReason, CanceledAt: &now}
			if req.CancelAmount != nil {
				cancel.CancelAmount = *req.CancelAmount
			}
			parts := strings.Split(r.URL.Path, "/")
			json.NewEncoder(w).Encode(paymentgw.Payment{
				PaymentKey: parts[len(parts)-2],
				Status:     "CANCELED",
				Cancels:    []paymentgw.Cancel{cancel},
			})
			return
		}
		if strings.HasSuffix(r.URL.Path, "/confirm") {
			var req paymentgw.ConfirmRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			now := time.Now()
			json.NewEncoder(w).Encode(paymentgw.Payment{
				PaymentKey:  req.PaymentKey,
				OrderID:     req.OrderID,
				Status:      "DONE",
				Method:      "CARD",
				TotalAmount: req.Amount,
				ApprovedAt:  &now,
			})
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(fg.server.Close)
	return fg
}

type fixture struct {
	app      *fiber.App
	db       *gorm.DB
	gateway  *fakeGateway
	customer *user.User
	extras   *extrachargeService.ExtraChargeService
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

	customer := &user.User{
		Uuid:         uuid.NewString(),
		Username:     "customer-" + uuid.NewString()[:8],
		PasswordHash: "x",
		LegalName:    "Test Customer",
		Phone:        uuid.NewString()[:12],
		Role:         constants.RoleCustomer,
	}
	require.NoError(t, db.Create(customer).Error)

	gw := newFakeGateway(t)
	client, err := paymentgw.NewClient(gw.server.URL, "sk_test_secret")
	require.NoError(t, err)

	asyncLogger := logger.NewAsyncLogger(db)
	actionLogs := actionlogService.NewActionLogService(db)
	notifs := notificationService.NewNotificationService(db, nil)
	points := pointsService.NewPointService(db)
	extras := extrachargeService.NewExtraChargeService(db, actionLogs, notifs)
	controller := NewPaymentController(db, asyncLogger, client, points, extras, notifs, actionLogs)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"uuid":     customer.Uuid,
			"username": customer.Username,
			"role":     customer.Role,
		})
		return c.Next()
	})
	app.Post("/api/payments/confirm", controller.Confirm)
	app.Post("/api/payments/webhook", controller.Webhook)
	app.Post("/api/payments/:paymentKey/cancel", controller.Cancel)

	return &fixture{app: app, db: db, gateway: gw, customer: customer, extras: extras}
}

func (f *fixture) createOrder(t *testing.T, totalPrice int) *orderModel.Order {
	t.Helper()
	ord := orderModel.Order{
		OrderNo:           "RP-TEST-" + uuid.NewString()[:6],
		CustomerID:        f.customer.ID,
		ItemName:          "wool coat",
		TotalPrice:        totalPrice,
		Status:            orderModel.OrderStatusPending,
		ExtraChargeStatus: orderModel.ExtraChargeNone,
		CreatedBy:         "test",
	}
	require.NoError(t, f.db.Create(&ord).Error)
	return &ord
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) (*http.Response, types.ApiResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var api types.ApiResponse
	require.NoError(t, json.Unmarshal(raw, &api))
	return resp, api
}

func TestConfirmMismatchNeverCallsGateway(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 12000)

	resp, api := postJSON(t, f.app, "/api/payments/confirm", fiber.Map{
		"payment_key": "pay_abc",
		"order_ref":   ord.OrderNo,
		"amount":      15000,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "AMOUNT_MISMATCH", api.Error)
	assert.Equal(t, 0, f.gateway.calls)

	var count int64
	f.db.Model(&paymentModel.Payment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestConfirmSettlesOrder(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 12000)

	resp, api := postJSON(t, f.app, "/api/payments/confirm", fiber.Map{
		"payment_key": "pay_ok",
		"order_ref":   ord.OrderNo,
		"amount":      12000,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, api.Success)
	assert.Equal(t, 1, f.gateway.calls)

	var fresh orderModel.Order
	require.NoError(t, f.db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.OrderStatusPaid, fresh.Status)
	assert.NotNil(t, fresh.PaidAt)
	require.NotNil(t, fresh.PaymentKey)
	assert.Equal(t, "pay_ok", *fresh.PaymentKey)

	var row paymentModel.Payment
	require.NoError(t, f.db.Where("payment_key = ?", "pay_ok").First(&row).Error)
	assert.Equal(t, paymentModel.TargetOrder, row.TargetKind)
	assert.Equal(t, 12000, row.Amount)

	// Default earn rate is 1 percent.
	var earned pointsModel.PointTransaction
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", f.customer.ID, pointsModel.TypeEarned).First(&earned).Error)
	assert.Equal(t, 120, earned.Amount)
}

func TestConfirmAlreadyPaidOrder(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 12000)
	now := time.Now()
	require.NoError(t, f.db.Model(ord).Update("paid_at", now).Error)

	resp, _ := postJSON(t, f.app, "/api/payments/confirm", fiber.Map{
		"payment_key": "pay_dup",
		"order_ref":   ord.OrderNo,
		"amount":      12000,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, 0, f.gateway.calls)
}

func TestConfirmExtraChargeReference(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 12000)
	price := 4000
	req := extrachargeModel.ExtraChargeRequest{
		OrderID:     ord.ID,
		RequesterID: f.customer.ID,
		Reason:      "extra stitching",
		Price:       &price,
		Status:      extrachargeModel.RequestStatusPending,
	}
	require.NoError(t, f.db.Create(&req).Error)
	require.NoError(t, f.db.Model(ord).Update("extra_charge_status", orderModel.ExtraChargePendingCustomer).Error)

	resp, _ := postJSON(t, f.app, "/api/payments/confirm", fiber.Map{
		"payment_key": "pay_extra",
		"order_ref":   fmt.Sprintf("EXTRA-%d", req.ID),
		"amount":      4000,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fresh extrachargeModel.ExtraChargeRequest
	require.NoError(t, f.db.First(&fresh, req.ID).Error)
	assert.Equal(t, extrachargeModel.RequestStatusPaid, fresh.Status)

	var freshOrd orderModel.Order
	require.NoError(t, f.db.First(&freshOrd, ord.ID).Error)
	assert.Equal(t, orderModel.ExtraChargePaid, freshOrd.ExtraChargeStatus)

	var row paymentModel.Payment
	require.NoError(t, f.db.Where("payment_key = ?", "pay_extra").First(&row).Error)
	assert.Equal(t, paymentModel.TargetExtraCharge, row.TargetKind)
}

func TestConfirmExtraChargeMismatch(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 12000)
	price := 4000
	req := extrachargeModel.ExtraChargeRequest{
		OrderID:     ord.ID,
		RequesterID: f.customer.ID,
		Reason:      "extra stitching",
		Price:       &price,
		Status:      extrachargeModel.RequestStatusPending,
	}
	require.NoError(t, f.db.Create(&req).Error)

	resp, api := postJSON(t, f.app, "/api/payments/confirm", fiber.Map{
		"payment_key": "pay_extra_bad",
		"order_ref":   fmt.Sprintf("EXTRA-%d", req.ID),
		"amount":      9999,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "AMOUNT_MISMATCH", api.Error)
	assert.Equal(t, 0, f.gateway.calls)
}

func TestWebhookAlwaysAnswersOK(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Unknown payment key is also acknowledged.
	resp, _ = postJSON(t, f.app, "/api/payments/webhook", fiber.Map{
		"eventType": "PAYMENT_STATUS_CHANGED",
		"data":      fiber.Map{"paymentKey": "pay_unknown", "status": "DONE"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWebhookSettlesDepositOrder(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 8000)

	row := paymentModel.Payment{
		PaymentKey: "pay_vbank",
		OrderRef:   ord.OrderNo,
		TargetKind: paymentModel.TargetOrder,
		TargetID:   ord.ID,
		Amount:     8000,
		Method:     "VIRTUAL_ACCOUNT",
		Status:     paymentModel.PaymentStatusWaitingDeposit,
	}
	require.NoError(t, f.db.Create(&row).Error)

	resp, _ := postJSON(t, f.app, "/api/payments/webhook", fiber.Map{
		"eventType": "PAYMENT_STATUS_CHANGED",
		"data":      fiber.Map{"paymentKey": "pay_vbank", "orderId": ord.OrderNo, "status": "DONE"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fresh orderModel.Order
	require.NoError(t, f.db.First(&fresh, ord.ID).Error)
	assert.Equal(t, orderModel.OrderStatusPaid, fresh.Status)
	assert.NotNil(t, fresh.PaidAt)

	var freshRow paymentModel.Payment
	require.NoError(t, f.db.First(&freshRow, row.ID).Error)
	assert.Equal(t, paymentModel.PaymentStatusDone, freshRow.Status)

	// Settlement earns points at the default 1 percent rate.
	var earned pointsModel.PointTransaction
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", f.customer.ID, pointsModel.TypeEarned).First(&earned).Error)
	assert.Equal(t, 80, earned.Amount)
}

func (f *fixture) createPayment(t *testing.T, ord *orderModel.Order, key string, amount int) *paymentModel.Payment {
	t.Helper()
	row := paymentModel.Payment{
		PaymentKey: key,
		OrderRef:   ord.OrderNo,
		TargetKind: paymentModel.TargetOrder,
		TargetID:   ord.ID,
		Amount:     amount,
		Method:     "CARD",
		Status:     paymentModel.PaymentStatusDone,
	}
	require.NoError(t, f.db.Create(&row).Error)
	return &row
}

func TestCancelFullWithoutAmount(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 10000)
	f.createPayment(t, ord, "pay_cancel_full", 10000)

	resp, api := postJSON(t, f.app, "/api/payments/pay_cancel_full/cancel", fiber.Map{
		"cancel_reason": "customer changed their mind",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, api.Success)
	assert.Equal(t, 1, f.gateway.calls)

	var fresh paymentModel.Payment
	require.NoError(t, f.db.Where("payment_key = ?", "pay_cancel_full").First(&fresh).Error)
	assert.Equal(t, paymentModel.PaymentStatusCanceled, fresh.Status)
	assert.Equal(t, 10000, fresh.CancelledAmount)
}

func TestCancelPartialThenRemainder(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 10000)
	f.createPayment(t, ord, "pay_cancel_part", 10000)

	resp, _ := postJSON(t, f.app, "/api/payments/pay_cancel_part/cancel", fiber.Map{
		"cancel_reason": "one item refunded",
		"cancel_amount": 3000,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fresh paymentModel.Payment
	require.NoError(t, f.db.Where("payment_key = ?", "pay_cancel_part").First(&fresh).Error)
	assert.Equal(t, paymentModel.PaymentStatusPartialCanceled, fresh.Status)
	assert.Equal(t, 3000, fresh.CancelledAmount)

	// Cancelling the remainder flips the cumulative total to a full cancel.
	resp, _ = postJSON(t, f.app, "/api/payments/pay_cancel_part/cancel", fiber.Map{
		"cancel_reason": "rest refunded",
		"cancel_amount": 7000,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, f.db.Where("payment_key = ?", "pay_cancel_part").First(&fresh).Error)
	assert.Equal(t, paymentModel.PaymentStatusCanceled, fresh.Status)
	assert.Equal(t, 10000, fresh.CancelledAmount)
	assert.Equal(t, 2, f.gateway.calls)
}

func TestCancelBeyondRemainingRefused(t *testing.T) {
	f := newFixture(t)
	ord := f.createOrder(t, 10000)
	row := f.createPayment(t, ord, "pay_cancel_over", 10000)
	require.NoError(t, f.db.Model(row).Update("cancelled_amount", 8000).Error)

	resp, _ := postJSON(t, f.app, "/api/payments/pay_cancel_over/cancel", fiber.Map{
		"cancel_reason": "too much",
		"cancel_amount": 5000,
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, f.gateway.calls)

	var fresh paymentModel.Payment
	require.NoError(t, f.db.Where("payment_key = ?", "pay_cancel_over").First(&fresh).Error)
	assert.Equal(t, 8000, fresh.CancelledAmount)
}
