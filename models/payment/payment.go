package payment

import (
	"time"
)

// PaymentStatus mirrors the gateway-side payment state.
type PaymentStatus string

const (
	PaymentStatusDone            PaymentStatus = "DONE"
	PaymentStatusWaitingDeposit  PaymentStatus = "WAITING_FOR_DEPOSIT"
	PaymentStatusCanceled        PaymentStatus = "CANCELED"
	PaymentStatusPartialCanceled PaymentStatus = "PARTIAL_CANCELED"
	PaymentStatusAborted         PaymentStatus = "ABORTED"
	PaymentStatusExpired         PaymentStatus = "EXPIRED"
)

// TargetKind says which table OrderRef points into.
type TargetKind string

const (
	TargetOrder       TargetKind = "ORDER"
	TargetExtraCharge TargetKind = "EXTRA_CHARGE"
)

// Payment mirrors one gateway payment into a local row. Amounts come from
// our own tables, never from the client.
type Payment struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	PaymentKey string     `gorm:"type:varchar(200);not null;unique" json:"payment_key"`
	OrderRef   string     `gorm:"type:varchar(64);not null;index" json:"order_ref"`
	TargetKind TargetKind `gorm:"type:varchar(20);not null" json:"target_kind"`
	TargetID   uint       `gorm:"not null;index" json:"target_id"`

	Amount          int           `gorm:"not null" json:"amount"`
	CancelledAmount int           `gorm:"not null;default:0" json:"cancelled_amount"`
	Method          string        `gorm:"type:varchar(40)" json:"method"`
	Status          PaymentStatus `gorm:"type:varchar(30);not null;index" json:"status"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
