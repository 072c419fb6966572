package points

import (
	"time"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeEarned   TransactionType = "EARNED"
	TypeUsed     TransactionType = "USED"
	TypeAdminAdd TransactionType = "ADMIN_ADD"
	TypeAdminSub TransactionType = "ADMIN_SUB"
	TypeExpired  TransactionType = "EXPIRED"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TypeEarned, TypeUsed, TypeAdminAdd, TypeAdminSub, TypeExpired:
		return true
	default:
		return false
	}
}

// IsCredit reports whether the type increases the balance.
func (t TransactionType) IsCredit() bool {
	return t == TypeEarned || t == TypeAdminAdd
}

// PointTransaction is one immutable ledger entry. Amount is signed; the
// running balance after applying the entry is recorded on the row. Rows are
// never updated except for the Expired flag on EARNED entries.
type PointTransaction struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	UserID uint `gorm:"not null;index" json:"user_id"`

	Amount       int             `gorm:"not null" json:"amount"`
	Type         TransactionType `gorm:"type:varchar(20);not null;index" json:"type"`
	BalanceAfter int             `gorm:"not null" json:"balance_after"`
	Reason       string          `gorm:"type:varchar(255)" json:"reason"`

	OrderID *uint `gorm:"index" json:"order_id,omitempty"`
	AdminID *uint `gorm:"index" json:"admin_id,omitempty"`

	// Expiry bookkeeping for EARNED entries.
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	Expired   bool       `gorm:"not null;default:false" json:"expired"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the PointTransaction model
func (PointTransaction) TableName() string {
	return "point_transactions"
}
