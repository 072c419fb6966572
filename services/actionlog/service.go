package actionlog

import (
	"fmt"

	"repair-ops/logger"
	"repair-ops/models/actionlog"
	"repair-ops/models/user"

	"gorm.io/gorm"
)

// ActionLogService writes audit rows for sensitive staff/customer actions.
type ActionLogService struct {
	DB *gorm.DB
}

// NewActionLogService creates a new action log service
func NewActionLogService(db *gorm.DB) *ActionLogService {
	return &ActionLogService{DB: db}
}

// Record inserts one audit row. Failures are logged and swallowed: an audit
// write must never fail the request that caused it.
func (s *ActionLogService) Record(actor *user.User, actionType string, orderID *uint, detail string) {
	row := actionlog.ActionLog{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		ActionType: actionType,
		OrderID:    orderID,
		Detail:     detail,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		logger.Error(fmt.Sprintf("Failed to write action log %s for user %d", actionType, actor.ID), err)
	}
}

// RecordTx is Record inside a caller-owned transaction. Unlike Record it
// returns the error so the caller decides whether the audit row is part of
// the atomic unit.
func (s *ActionLogService) RecordTx(tx *gorm.DB, actor *user.User, actionType string, orderID *uint, detail string) error {
	row := actionlog.ActionLog{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		ActionType: actionType,
		OrderID:    orderID,
		Detail:     detail,
	}
	return tx.Create(&row).Error
}

// Query filters for listing audit rows.
type Query struct {
	ActorID    *uint
	ActionType string
	OrderID    *uint
	Limit      int
	Offset     int
}

// List returns audit rows newest-first with the total matching count.
func (s *ActionLogService) List(q Query) ([]actionlog.ActionLog, int64, error) {
	db := s.DB.Model(&actionlog.ActionLog{})
	if q.ActorID != nil {
		db = db.Where("actor_id = ?", *q.ActorID)
	}
	if q.ActionType != "" {
		db = db.Where("action_type = ?", q.ActionType)
	}
	if q.OrderID != nil {
		db = db.Where("order_id = ?", *q.OrderID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []actionlog.ActionLog
	err := db.Order("id DESC").Limit(limit).Offset(q.Offset).Find(&rows).Error
	return rows, total, err
}
