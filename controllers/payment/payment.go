package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"repair-ops/constants"
	"repair-ops/httpServices/paymentgw"
	"repair-ops/logger"
	extrachargeModel "repair-ops/models/extracharge"
	notificationModel "repair-ops/models/notification"
	orderModel "repair-ops/models/order"
	paymentModel "repair-ops/models/payment"
	actionlogService "repair-ops/services/actionlog"
	extrachargeService "repair-ops/services/extracharge"
	notificationService "repair-ops/services/notification"
	pointsService "repair-ops/services/points"
	"repair-ops/types"
	paymentTypes "repair-ops/types/payment"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// extraRefPrefix marks an order_ref that targets an extra-charge request
// instead of an order number.
const extraRefPrefix = "EXTRA-"

// PaymentController mirrors gateway payments into local rows. The
// authoritative amount always comes from our own tables; a mismatch stops
// the flow before the gateway is ever called.
type PaymentController struct {
	DB            *gorm.DB
	Logger        *logger.AsyncLogger
	Gateway       *paymentgw.Client
	Points        *pointsService.PointService
	ExtraCharges  *extrachargeService.ExtraChargeService
	Notifications *notificationService.NotificationService
	ActionLogs    *actionlogService.ActionLogService
}

// NewPaymentController creates a new payment controller
func NewPaymentController(db *gorm.DB, asyncLogger *logger.AsyncLogger, gateway *paymentgw.Client,
	points *pointsService.PointService, extraCharges *extrachargeService.ExtraChargeService,
	notifs *notificationService.NotificationService, actionLogs *actionlogService.ActionLogService) *PaymentController {
	return &PaymentController{
		DB:            db,
		Logger:        asyncLogger,
		Gateway:       gateway,
		Points:        points,
		ExtraCharges:  extraCharges,
		Notifications: notifs,
		ActionLogs:    actionLogs,
	}
}

func (pc *PaymentController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	pc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// Confirm captures an authorized payment. The amount the client sent is
// checked against the stored price first: on mismatch the gateway is not
// contacted at all.
func (pc *PaymentController) Confirm(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req paymentTypes.PaymentConfirmRequest
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

	var (
		targetKind    paymentModel.TargetKind
		targetID      uint
		authoritative int
		ord           orderModel.Order
		extraReq      extrachargeModel.ExtraChargeRequest
	)

	if strings.HasPrefix(req.OrderRef, extraRefPrefix) {
		id, parseErr := strconv.ParseUint(strings.TrimPrefix(req.OrderRef, extraRefPrefix), 10, 64)
		if parseErr != nil {
			return pc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
				Success: false,
				Message: "Invalid extra charge reference",
				Status:  fiber.StatusBadRequest,
			})
		}
		if err := pc.DB.Where("id = ?", id).First(&extraReq).Error; err != nil {
			return pc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
				Success: false,
				Message: "Extra charge request not found",
				Status:  fiber.StatusNotFound,
			})
		}
		if extraReq.Status != extrachargeModel.RequestStatusPending || extraReq.Price == nil {
			return pc.sendResponseWithLog(c, fiber.StatusUnprocessableEntity, types.ApiResponse{
				Success: false,
				Message: "Extra charge request is not payable",
				Status:  fiber.StatusUnprocessableEntity,
			})
		}
		targetKind = paymentModel.TargetExtraCharge
		targetID = extraReq.ID
		authoritative = *extraReq.Price
	} else {
		if err := pc.DB.Where("order_no = ? AND deleted_at IS NULL", req.OrderRef).First(&ord).Error; err != nil {
			return pc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
				Success: false,
				Message: "Order not found",
				Status:  fiber.StatusNotFound,
			})
		}
		if ord.PaidAt != nil {
			return pc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
				Success: false,
				Message: "Order is already paid",
				Status:  fiber.StatusConflict,
			})
		}
		targetKind = paymentModel.TargetOrder
		targetID = ord.ID
		authoritative = ord.TotalPrice
	}

	// The stored price decides. No gateway call happens on a mismatch.
	if req.Amount != authoritative {
		logger.Warning(fmt.Sprintf("Payment amount mismatch on %s: sent %d, stored %d",
			req.OrderRef, req.Amount, authoritative))
		return pc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: fmt.Sprintf("Amount %d does not match the stored price %d", req.Amount, authoritative),
			Status:  fiber.StatusBadRequest,
			Error:   "AMOUNT_MISMATCH",
		})
	}

	gwPayment, err := pc.Gateway.Confirm(paymentgw.ConfirmRequest{
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderRef,
		Amount:     authoritative,
	})
	if err != nil {
		logger.Error("Gateway confirm failed", err)
		return pc.sendResponseWithLog(c, fiber.StatusBadGateway, types.ApiResponse{
			Success: false,
			Message: "Payment gateway rejected the confirmation",
			Status:  fiber.StatusBadGateway,
			Error:   err.Error(),
		})
	}

	row := paymentModel.Payment{
		PaymentKey: gwPayment.PaymentKey,
		OrderRef:   req.OrderRef,
		TargetKind: targetKind,
		TargetID:   targetID,
		Amount:     authoritative,
		Method:     gwPayment.Method,
		Status:     paymentModel.PaymentStatus(gwPayment.Status),
		ApprovedAt: gwPayment.ApprovedAt,
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if targetKind == paymentModel.TargetOrder {
			return pc.settleOrderTx(tx, &ord, gwPayment.PaymentKey, actor.Uuid)
		}
		_, err := pc.ExtraCharges.MarkPaidTx(tx, extraReq.ID, actor.Uuid)
		return err
	})
	if err != nil {
		logger.Error("Failed to persist confirmed payment", err)
		return pc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Payment confirmed but could not be recorded",
			Status:  fiber.StatusInternalServerError,
		})
	}

	pc.ActionLogs.Record(actor, constants.ActionConfirmPayment, orderIDFor(targetKind, &ord, &extraReq),
		fmt.Sprintf("payment %s confirmed for %s (%d)", gwPayment.PaymentKey, req.OrderRef, authoritative))
	pc.notifyPaid(targetKind, &ord, &extraReq, authoritative)

	return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Payment confirmed",
		Status:  fiber.StatusOK,
		Data:    row,
	})
}

// settleOrderTx marks an order paid and credits loyalty points.
func (pc *PaymentController) settleOrderTx(tx *gorm.DB, ord *orderModel.Order, paymentKey, actorUuid string) error {
	now := time.Now()
	event := orderModel.OrderStatusEvent{
		OrderID:    ord.ID,
		FromStatus: ord.Status,
		ToStatus:   orderModel.OrderStatusPaid,
		CreatedBy:  actorUuid,
	}
	if err := tx.Create(&event).Error; err != nil {
		return err
	}
	if err := tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
		Updates(map[string]interface{}{
			"status":      orderModel.OrderStatusPaid,
			"payment_key": paymentKey,
			"paid_at":     now,
			"updated_by":  actorUuid,
		}).Error; err != nil {
		return err
	}
	return pc.Points.EarnForPayment(tx, ord.CustomerID, ord.ID, ord.TotalPrice)
}

func orderIDFor(kind paymentModel.TargetKind, ord *orderModel.Order, extraReq *extrachargeModel.ExtraChargeRequest) *uint {
	if kind == paymentModel.TargetOrder {
		return &ord.ID
	}
	return &extraReq.OrderID
}

func (pc *PaymentController) notifyPaid(kind paymentModel.TargetKind, ord *orderModel.Order, extraReq *extrachargeModel.ExtraChargeRequest, amount int) {
	if kind == paymentModel.TargetOrder {
		if err := pc.Notifications.Notify(ord.CustomerID,
			notificationModel.TypePaymentCompleted,
			"Payment completed",
			fmt.Sprintf("Payment of %d for order %s was completed", amount, ord.OrderNo),
			ord.ID); err != nil {
			logger.Error("Failed to notify customer about payment", err)
		}
		return
	}
	if err := pc.Notifications.Notify(extraReq.RequesterID,
		notificationModel.TypeExtraChargeAnswered,
		"Extra charge paid",
		fmt.Sprintf("The extra charge of %d was paid by the customer", amount),
		extraReq.ID); err != nil {
		logger.Error("Failed to notify requester about paid extra charge", err)
	}
}

// Cancel cancels a captured payment, fully or partially. The local status
// is derived from the cumulative cancelled amount.
func (pc *PaymentController) Cancel(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return pc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	paymentKey := c.Params("paymentKey")

	var req paymentTypes.PaymentCancelRequest
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

	var row paymentModel.Payment
	err = pc.DB.Where("payment_key = ?", paymentKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Payment not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load payment", err)
		return pc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to load payment",
			Status:  fiber.StatusInternalServerError,
		})
	}

	remaining := row.Amount - row.CancelledAmount
	cancelAmount := remaining
	if req.CancelAmount != nil {
		cancelAmount = *req.CancelAmount
	}
	if cancelAmount > remaining {
		return pc.sendResponseWithLog(c, fiber.StatusUnprocessableEntity, types.ApiResponse{
			Success: false,
			Message: fmt.Sprintf("Cancel amount %d exceeds remaining %d", cancelAmount, remaining),
			Status:  fiber.StatusUnprocessableEntity,
		})
	}

	if _, err := pc.Gateway.Cancel(paymentKey, paymentgw.CancelRequest{
		CancelReason: req.CancelReason,
		CancelAmount: req.CancelAmount,
	}); err != nil {
		logger.Error("Gateway cancel failed", err)
		return pc.sendResponseWithLog(c, fiber.StatusBadGateway, types.ApiResponse{
			Success: false,
			Message: "Payment gateway rejected the cancellation",
			Status:  fiber.StatusBadGateway,
			Error:   err.Error(),
		})
	}

	cumulative := row.CancelledAmount + cancelAmount
	status := paymentModel.PaymentStatusPartialCanceled
	if cumulative >= row.Amount {
		status = paymentModel.PaymentStatusCanceled
	}

	if err := pc.DB.Model(&row).Updates(map[string]interface{}{
		"cancelled_amount": cumulative,
		"status":           status,
	}).Error; err != nil {
		logger.Error("Failed to record cancellation", err)
		return pc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Cancellation succeeded but could not be recorded",
			Status:  fiber.StatusInternalServerError,
		})
	}

	pc.ActionLogs.Record(actor, constants.ActionCancelPayment, nil,
		fmt.Sprintf("payment %s cancelled by %d (%s)", paymentKey, cancelAmount, req.CancelReason))

	row.CancelledAmount = cumulative
	row.Status = status
	return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Payment cancelled",
		Status:  fiber.StatusOK,
		Data:    row,
	})
}

// Show inquires the gateway-side state and mirrors it into the local row.
func (pc *PaymentController) Show(c *fiber.Ctx) error {
	paymentKey := c.Params("paymentKey")

	var row paymentModel.Payment
	err := pc.DB.Where("payment_key = ?", paymentKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Payment not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load payment", err)
		return pc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to load payment",
			Status:  fiber.StatusInternalServerError,
		})
	}

	gwPayment, err := pc.Gateway.Inquire(paymentKey)
	if err != nil {
		logger.Error("Gateway inquire failed", err)
		return pc.sendResponseWithLog(c, fiber.StatusBadGateway, types.ApiResponse{
			Success: false,
			Message: "Payment gateway inquiry failed",
			Status:  fiber.StatusBadGateway,
			Error:   err.Error(),
		})
	}

	if paymentModel.PaymentStatus(gwPayment.Status) != row.Status {
		if err := pc.DB.Model(&row).Update("status", gwPayment.Status).Error; err != nil {
			logger.Error("Failed to mirror gateway payment status", err)
		} else {
			row.Status = paymentModel.PaymentStatus(gwPayment.Status)
		}
	}

	return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Payment fetched",
		Status:  fiber.StatusOK,
		Data: fiber.Map{
			"payment": row,
			"gateway": gwPayment,
		},
	})
}

// Webhook receives async gateway events. It always answers 200: the gateway
// retries on anything else and our failures are our problem, not theirs.
func (pc *PaymentController) Webhook(c *fiber.Ctx) error {
	ok := func() error {
		return pc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
			Success: true,
			Message: "OK",
			Status:  fiber.StatusOK,
		})
	}

	var event paymentgw.WebhookEvent
	if err := c.BodyParser(&event); err != nil {
		logger.Error("Failed to parse payment webhook", err)
		return ok()
	}
	if event.Data.PaymentKey == "" {
		logger.Warning("Payment webhook without payment key")
		return ok()
	}

	var row paymentModel.Payment
	err := pc.DB.Where("payment_key = ?", event.Data.PaymentKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warning("Payment webhook for unknown payment " + event.Data.PaymentKey)
		return ok()
	}
	if err != nil {
		logger.Error("Failed to load payment for webhook", err)
		return ok()
	}

	newStatus := paymentModel.PaymentStatus(event.Data.Status)
	if newStatus == row.Status {
		return ok()
	}

	// Update writes the new status back into row, so the pre-update value
	// has to be captured first.
	prevStatus := row.Status
	if err := pc.DB.Model(&row).Update("status", newStatus).Error; err != nil {
		logger.Error("Failed to mirror webhook payment status", err)
		return ok()
	}

	// Virtual-account deposits complete asynchronously; the order is only
	// settled when the money actually arrived.
	if row.TargetKind == paymentModel.TargetOrder &&
		prevStatus == paymentModel.PaymentStatusWaitingDeposit &&
		newStatus == paymentModel.PaymentStatusDone {
		var ord orderModel.Order
		if err := pc.DB.Where("id = ?", row.TargetID).First(&ord).Error; err != nil {
			logger.Error("Failed to load order for deposit completion", err)
			return ok()
		}
		if ord.PaidAt == nil {
			err := pc.DB.Transaction(func(tx *gorm.DB) error {
				return pc.settleOrderTx(tx, &ord, row.PaymentKey, "payment-webhook")
			})
			if err != nil {
				logger.Error("Failed to settle order from webhook", err)
				return ok()
			}
			pc.notifyPaid(paymentModel.TargetOrder, &ord, nil, row.Amount)
		}
	}

	logger.Infof("Payment %s moved to %s via webhook", row.PaymentKey, newStatus)
	return ok()
}
