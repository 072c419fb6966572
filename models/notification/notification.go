package notification

import (
	"time"
)

// Notification types created by state transitions.
const (
	TypePaymentCompleted     = "PAYMENT_COMPLETED"
	TypeExtraChargeRequested = "EXTRA_CHARGE_REQUESTED"
	TypeExtraChargeApproved  = "EXTRA_CHARGE_APPROVED"
	TypeExtraChargeAnswered  = "EXTRA_CHARGE_ANSWERED"
	TypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
	TypeSystem               = "SYSTEM"
)

// Notification is one per-user message row. ReadAt doubles as the read
// marker: nil means unread.
type Notification struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	UserID uint `gorm:"not null;index" json:"user_id"`

	Type        string     `gorm:"type:varchar(40);not null" json:"type"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Body        string     `gorm:"type:text" json:"body"`
	ReferenceID uint       `json:"reference_id"`
	ReadAt      *time.Time `gorm:"index" json:"read_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsRead reports whether the notification was read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
