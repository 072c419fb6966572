package points

import (
	"errors"
	"fmt"
	"time"

	"repair-ops/logger"
	pointsModel "repair-ops/models/points"
	"repair-ops/models/setting"
	"repair-ops/models/user"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// ErrInsufficientPoints is returned when a debit would push the balance
// below zero.
var ErrInsufficientPoints = errors.New("insufficient point balance")

// PointService owns the loyalty-point ledger. Every balance change goes
// through Apply so the cached columns on users and the ledger can never
// drift inside a single transaction.
type PointService struct {
	DB *gorm.DB
}

// NewPointService creates a new point service
func NewPointService(db *gorm.DB) *PointService {
	return &PointService{DB: db}
}

// Apply writes one ledger entry and updates the user's cached balances in
// the given transaction. Amount is signed: credits positive, debits
// negative. The sign must agree with the transaction type.
func (s *PointService) Apply(tx *gorm.DB, entry *pointsModel.PointTransaction) error {
	if !entry.Type.IsValid() {
		return fmt.Errorf("invalid point transaction type: %s", entry.Type)
	}
	if entry.Type.IsCredit() && entry.Amount <= 0 {
		return fmt.Errorf("credit entry requires a positive amount, got %d", entry.Amount)
	}
	if !entry.Type.IsCredit() && entry.Amount >= 0 {
		return fmt.Errorf("debit entry requires a negative amount, got %d", entry.Amount)
	}

	var u user.User
	if err := tx.Where("id = ? AND deleted_at IS NULL", entry.UserID).First(&u).Error; err != nil {
		return fmt.Errorf("point holder %d not found: %w", entry.UserID, err)
	}

	newBalance := u.PointBalance + entry.Amount
	if newBalance < 0 {
		return ErrInsufficientPoints
	}

	entry.BalanceAfter = newBalance
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write point ledger entry: %w", err)
	}

	updates := map[string]interface{}{"point_balance": newBalance}
	switch entry.Type {
	case pointsModel.TypeEarned, pointsModel.TypeAdminAdd:
		updates["total_earned_points"] = u.TotalEarnedPoints + entry.Amount
	case pointsModel.TypeUsed:
		updates["total_used_points"] = u.TotalUsedPoints - entry.Amount
	}
	if err := tx.Model(&user.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update cached point balance: %w", err)
	}
	return nil
}

// EarnForPayment credits points for a completed payment according to the
// configured earn rate. A zero rate (or a rounded-down zero amount) writes
// nothing. Earned points expire at the end of the month N months out.
func (s *PointService) EarnForPayment(tx *gorm.DB, userID uint, orderID uint, paidAmount int) error {
	rate := setting.GetInt(tx, setting.KeyPointEarnRate, 1)
	if rate <= 0 {
		return nil
	}
	amount := paidAmount * rate / 100
	if amount <= 0 {
		return nil
	}

	validMonths := setting.GetInt(tx, setting.KeyPointValidMonths, 12)
	expiresAt := now.With(time.Now().AddDate(0, validMonths, 0)).EndOfMonth()

	entry := pointsModel.PointTransaction{
		UserID:    userID,
		Amount:    amount,
		Type:      pointsModel.TypeEarned,
		Reason:    "payment reward",
		OrderID:   &orderID,
		ExpiresAt: &expiresAt,
	}
	return s.Apply(tx, &entry)
}

// Use debits points against an order, for example as a discount.
func (s *PointService) Use(tx *gorm.DB, userID uint, orderID uint, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("point use amount must be positive, got %d", amount)
	}
	entry := pointsModel.PointTransaction{
		UserID:  userID,
		Amount:  -amount,
		Type:    pointsModel.TypeUsed,
		Reason:  reason,
		OrderID: &orderID,
	}
	return s.Apply(tx, &entry)
}

// AdminAdjust credits or debits a user's balance by an admin decision.
// Amount is signed.
func (s *PointService) AdminAdjust(adminID, userID uint, amount int, reason string) (*pointsModel.PointTransaction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("adjustment amount must be non-zero")
	}

	entryType := pointsModel.TypeAdminAdd
	if amount < 0 {
		entryType = pointsModel.TypeAdminSub
	}

	entry := pointsModel.PointTransaction{
		UserID:  userID,
		Amount:  amount,
		Type:    entryType,
		Reason:  reason,
		AdminID: &adminID,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Apply(tx, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// History returns a user's ledger entries newest-first.
func (s *PointService) History(userID uint, limit, offset int) ([]pointsModel.PointTransaction, int64, error) {
	db := s.DB.Model(&pointsModel.PointTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []pointsModel.PointTransaction
	err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// ExpireOverdue sweeps EARNED entries whose expiry passed and writes one
// EXPIRED debit per affected user, capped at the current balance (points
// already spent cannot expire twice). Returns the number of users touched.
func (s *PointService) ExpireOverdue() (int, error) {
	cutoff := now.With(time.Now()).EndOfDay()

	var overdue []pointsModel.PointTransaction
	err := s.DB.Where("type = ? AND expired = ? AND expires_at IS NOT NULL AND expires_at <= ?",
		pointsModel.TypeEarned, false, cutoff).
		Order("user_id, id").
		Find(&overdue).Error
	if err != nil {
		return 0, err
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	perUser := make(map[uint][]pointsModel.PointTransaction)
	for _, e := range overdue {
		perUser[e.UserID] = append(perUser[e.UserID], e)
	}

	affected := 0
	for userID, entries := range perUser {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var u user.User
			if err := tx.Where("id = ?", userID).First(&u).Error; err != nil {
				return err
			}

			total := 0
			ids := make([]uint, 0, len(entries))
			for _, e := range entries {
				total += e.Amount
				ids = append(ids, e.ID)
			}
			if total > u.PointBalance {
				total = u.PointBalance
			}

			if total > 0 {
				entry := pointsModel.PointTransaction{
					UserID: userID,
					Amount: -total,
					Type:   pointsModel.TypeExpired,
					Reason: "points expired",
				}
				if err := s.Apply(tx, &entry); err != nil {
					return err
				}
			}

			return tx.Model(&pointsModel.PointTransaction{}).
				Where("id IN ?", ids).
				Update("expired", true).Error
		})
		if err != nil {
			logger.Error(fmt.Sprintf("Point expiry failed for user %d", userID), err)
			continue
		}
		affected++
	}
	return affected, nil
}
