package extracharge

import (
	"errors"
	"fmt"
	"time"

	"repair-ops/constants"
	"repair-ops/logger"
	extrachargeModel "repair-ops/models/extracharge"
	notificationModel "repair-ops/models/notification"
	orderModel "repair-ops/models/order"
	"repair-ops/models/user"
	actionlogService "repair-ops/services/actionlog"
	notificationService "repair-ops/services/notification"

	"gorm.io/gorm"
)

// Review actions.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// Customer answers.
const (
	AnswerAccepted = "ACCEPTED"
	AnswerRejected = "REJECTED"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrRequestNotFound    = errors.New("extra charge request not found")
	ErrActiveRequest      = errors.New("order already has an active extra charge request")
	ErrOrderClosed        = errors.New("order is in a terminal status")
	ErrPriceRequired      = errors.New("a positive price is required")
	ErrNotPendingManager  = errors.New("request is not awaiting manager review")
	ErrNotPendingCustomer = errors.New("request is not awaiting the customer")
	ErrNotOrderCustomer   = errors.New("order belongs to a different customer")
	ErrNotRequester       = errors.New("request was raised by a different worker")
	ErrUnknownAction      = errors.New("unknown review action")
	ErrUnknownAnswer      = errors.New("unknown customer answer")
)

// ExtraChargeService drives the extra-charge approval workflow. All status
// moves happen inside one transaction so the request row and the order's
// extra_charge_status can never disagree.
type ExtraChargeService struct {
	DB            *gorm.DB
	ActionLogs    *actionlogService.ActionLogService
	Notifications *notificationService.NotificationService
}

// NewExtraChargeService creates a new extra charge service
func NewExtraChargeService(db *gorm.DB, logs *actionlogService.ActionLogService, notifs *notificationService.NotificationService) *ExtraChargeService {
	return &ExtraChargeService{
		DB:            db,
		ActionLogs:    logs,
		Notifications: notifs,
	}
}

// Request opens a new extra-charge ask on an order. Workers ask without a
// price and the order moves to PENDING_MANAGER; managers and admins ask with
// a price and the order skips straight to PENDING_CUSTOMER.
func (s *ExtraChargeService) Request(actor *user.User, orderID uint, reason string, price *int) (*extrachargeModel.ExtraChargeRequest, error) {
	isWorker := actor.Role == constants.RoleWorker
	if !isWorker {
		if price == nil || *price <= 0 {
			return nil, ErrPriceRequired
		}
	}

	var req extrachargeModel.ExtraChargeRequest
	var ord orderModel.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND deleted_at IS NULL", orderID).First(&ord).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if ord.Status.IsTerminal() {
			return ErrOrderClosed
		}
		if ord.ExtraChargeStatus != orderModel.ExtraChargeNone {
			return ErrActiveRequest
		}

		req = extrachargeModel.ExtraChargeRequest{
			OrderID:     ord.ID,
			RequesterID: actor.ID,
			Reason:      reason,
			Status:      extrachargeModel.RequestStatusPending,
		}
		nextStatus := orderModel.ExtraChargePendingManager
		if !isWorker {
			req.Price = price
			nextStatus = orderModel.ExtraChargePendingCustomer
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}

		return tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
			Updates(map[string]interface{}{
				"extra_charge_status": nextStatus,
				"updated_by":          actor.Uuid,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.ActionLogs.Record(actor, constants.ActionReqExtraCharge, &ord.ID,
		fmt.Sprintf("extra charge requested on order %s: %s", ord.OrderNo, reason))

	if isWorker {
		if err := s.Notifications.NotifyRole(constants.ManagerRoles,
			notificationModel.TypeExtraChargeRequested,
			"Extra charge awaiting review",
			fmt.Sprintf("Order %s: %s", ord.OrderNo, reason),
			req.ID); err != nil {
			logger.Error("Failed to notify managers about extra charge request", err)
		}
	} else {
		if err := s.Notifications.Notify(ord.CustomerID,
			notificationModel.TypeExtraChargeApproved,
			"Additional charge on your order",
			fmt.Sprintf("Order %s has an additional charge of %d: %s", ord.OrderNo, *price, reason),
			req.ID); err != nil {
			logger.Error("Failed to notify customer about extra charge", err)
		}
	}

	return &req, nil
}

// Review is the manager decision on a worker-raised request. APPROVE sets
// the price and forwards the ask to the customer; REJECT cancels it and puts
// the order back to PROCESSING.
func (s *ExtraChargeService) Review(actor *user.User, orderID uint, action string, price *int, note *string) (*extrachargeModel.ExtraChargeRequest, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, ErrUnknownAction
	}
	if action == ActionApprove && (price == nil || *price <= 0) {
		return nil, ErrPriceRequired
	}

	var req extrachargeModel.ExtraChargeRequest
	var ord orderModel.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND deleted_at IS NULL", orderID).First(&ord).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if ord.ExtraChargeStatus != orderModel.ExtraChargePendingManager {
			return ErrNotPendingManager
		}
		if err := tx.Where("order_id = ? AND status = ?", ord.ID, extrachargeModel.RequestStatusPending).
			Order("id DESC").First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		now := time.Now()
		req.ReviewedByID = &actor.ID
		req.ReviewedAt = &now

		if action == ActionApprove {
			req.Price = price
			req.Note = note
			if err := tx.Save(&req).Error; err != nil {
				return err
			}
			return tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
				Updates(map[string]interface{}{
					"extra_charge_status": orderModel.ExtraChargePendingCustomer,
					"updated_by":          actor.Uuid,
				}).Error
		}

		// Reject: drop the ask and resume processing.
		req.Status = extrachargeModel.RequestStatusCancelledByManager
		req.Note = note
		if err := tx.Save(&req).Error; err != nil {
			return err
		}
		return tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
			Updates(map[string]interface{}{
				"extra_charge_status": orderModel.ExtraChargeNone,
				"status":              orderModel.OrderStatusProcessing,
				"updated_by":          actor.Uuid,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if action == ActionApprove {
		s.ActionLogs.Record(actor, constants.ActionApproveExtraCharge, &ord.ID,
			fmt.Sprintf("extra charge on order %s approved at %d", ord.OrderNo, *price))
		if err := s.Notifications.Notify(ord.CustomerID,
			notificationModel.TypeExtraChargeApproved,
			"Additional charge on your order",
			fmt.Sprintf("Order %s has an additional charge of %d: %s", ord.OrderNo, *price, req.Reason),
			req.ID); err != nil {
			logger.Error("Failed to notify customer about approved extra charge", err)
		}
	} else {
		s.ActionLogs.Record(actor, constants.ActionRejectExtraCharge, &ord.ID,
			fmt.Sprintf("extra charge on order %s rejected by manager", ord.OrderNo))
		if err := s.Notifications.Notify(req.RequesterID,
			notificationModel.TypeExtraChargeAnswered,
			"Extra charge request rejected",
			fmt.Sprintf("Your extra charge request on order %s was rejected", ord.OrderNo),
			req.ID); err != nil {
			logger.Error("Failed to notify requester about rejected extra charge", err)
		}
	}

	return &req, nil
}

// Cancel withdraws a worker's own ask while it still awaits manager review.
// The order goes back to having no active extra charge.
func (s *ExtraChargeService) Cancel(actor *user.User, requestID uint) (*extrachargeModel.ExtraChargeRequest, error) {
	var req extrachargeModel.ExtraChargeRequest
	var ord orderModel.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.RequesterID != actor.ID {
			return ErrNotRequester
		}
		if err := tx.Where("id = ?", req.OrderID).First(&ord).Error; err != nil {
			return err
		}
		if req.Status != extrachargeModel.RequestStatusPending ||
			ord.ExtraChargeStatus != orderModel.ExtraChargePendingManager {
			return ErrNotPendingManager
		}

		now := time.Now()
		req.Status = extrachargeModel.RequestStatusCancelledByWorker
		req.RespondedAt = &now
		if err := tx.Save(&req).Error; err != nil {
			return err
		}
		return tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
			Updates(map[string]interface{}{
				"extra_charge_status": orderModel.ExtraChargeNone,
				"updated_by":          actor.Uuid,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.ActionLogs.Record(actor, constants.ActionCancelExtraCharge, &ord.ID,
		fmt.Sprintf("extra charge request on order %s withdrawn by requester", ord.OrderNo))
	if err := s.Notifications.NotifyRole(constants.ManagerRoles,
		notificationModel.TypeExtraChargeAnswered,
		"Extra charge request withdrawn",
		fmt.Sprintf("The extra charge request on order %s was withdrawn", ord.OrderNo),
		req.ID); err != nil {
		logger.Error("Failed to notify managers about withdrawn extra charge", err)
	}

	return &req, nil
}

// Respond records the customer's answer on a forwarded request. ACCEPTED
// closes the ask as PAID; REJECTED closes it as REJECTED. Either way the
// original requester is notified.
func (s *ExtraChargeService) Respond(customer *user.User, requestID uint, answer string) (*extrachargeModel.ExtraChargeRequest, error) {
	if answer != AnswerAccepted && answer != AnswerRejected {
		return nil, ErrUnknownAnswer
	}

	var req extrachargeModel.ExtraChargeRequest
	var ord orderModel.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if err := tx.Where("id = ?", req.OrderID).First(&ord).Error; err != nil {
			return err
		}
		if ord.CustomerID != customer.ID {
			return ErrNotOrderCustomer
		}
		if req.Status != extrachargeModel.RequestStatusPending ||
			ord.ExtraChargeStatus != orderModel.ExtraChargePendingCustomer {
			return ErrNotPendingCustomer
		}

		now := time.Now()
		req.RespondedAt = &now

		nextOrderStatus := orderModel.ExtraChargePaid
		if answer == AnswerAccepted {
			req.Status = extrachargeModel.RequestStatusPaid
		} else {
			req.Status = extrachargeModel.RequestStatusRejected
			nextOrderStatus = orderModel.ExtraChargeRejected
		}
		if err := tx.Save(&req).Error; err != nil {
			return err
		}
		return tx.Model(&orderModel.Order{}).Where("id = ?", ord.ID).
			Updates(map[string]interface{}{
				"extra_charge_status": nextOrderStatus,
				"updated_by":          customer.Uuid,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.ActionLogs.Record(customer, constants.ActionRespondExtraCharge, &ord.ID,
		fmt.Sprintf("customer answered %s on order %s", answer, ord.OrderNo))
	if err := s.Notifications.Notify(req.RequesterID,
		notificationModel.TypeExtraChargeAnswered,
		"Extra charge answered",
		fmt.Sprintf("The customer answered %s on order %s", answer, ord.OrderNo),
		req.ID); err != nil {
		logger.Error("Failed to notify requester about customer answer", err)
	}

	return &req, nil
}

// MarkPaidTx closes a request as PAID inside a payment transaction. Used by
// the gateway confirm path when the customer pays the charge directly.
func (s *ExtraChargeService) MarkPaidTx(tx *gorm.DB, requestID uint, updatedBy string) (*extrachargeModel.ExtraChargeRequest, error) {
	var req extrachargeModel.ExtraChargeRequest
	if err := tx.Where("id = ?", requestID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != extrachargeModel.RequestStatusPending {
		return nil, ErrNotPendingCustomer
	}

	now := time.Now()
	req.Status = extrachargeModel.RequestStatusPaid
	req.RespondedAt = &now
	if err := tx.Save(&req).Error; err != nil {
		return nil, err
	}

	err := tx.Model(&orderModel.Order{}).Where("id = ?", req.OrderID).
		Updates(map[string]interface{}{
			"extra_charge_status": orderModel.ExtraChargePaid,
			"updated_by":          updatedBy,
		}).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByOrder returns all requests raised on an order, newest first.
func (s *ExtraChargeService) ListByOrder(orderID uint) ([]extrachargeModel.ExtraChargeRequest, error) {
	var rows []extrachargeModel.ExtraChargeRequest
	err := s.DB.Where("order_id = ?", orderID).Order("id DESC").Find(&rows).Error
	return rows, err
}
