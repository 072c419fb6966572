package extracharge

import (
	"time"

	"repair-ops/models/order"
	"repair-ops/models/user"
)

// RequestStatus is the per-request status of an extra-charge ask.
type RequestStatus string

const (
	RequestStatusPending            RequestStatus = "PENDING"
	RequestStatusPaid               RequestStatus = "PAID"
	RequestStatusRejected           RequestStatus = "REJECTED"
	RequestStatusCancelledByManager RequestStatus = "CANCELLED_BY_MANAGER"
	RequestStatusCancelledByWorker  RequestStatus = "CANCELLED_BY_WORKER"
)

func (rs RequestStatus) String() string {
	return string(rs)
}

// IsTerminal reports whether the request reached a final state.
func (rs RequestStatus) IsTerminal() bool {
	return rs != RequestStatusPending
}

// ExtraChargeRequest is one additional-cost ask raised against an order.
// Worker requests start without a price; the price is set at manager
// approval. Manager/admin direct requests carry the price from the start.
type ExtraChargeRequest struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	OrderID uint        `gorm:"not null;index" json:"order_id"`
	Order   order.Order `gorm:"foreignKey:OrderID" json:"order"`

	RequesterID uint      `gorm:"not null;index" json:"requester_id"`
	Requester   user.User `gorm:"foreignKey:RequesterID" json:"requester"`

	Reason string  `gorm:"type:text;not null" json:"reason"`
	Price  *int    `json:"price,omitempty"`
	Note   *string `gorm:"type:text" json:"note,omitempty"`

	Status RequestStatus `gorm:"type:varchar(30);not null;default:PENDING;index" json:"status"`

	ReviewedByID *uint      `gorm:"index" json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name for the ExtraChargeRequest model
func (ExtraChargeRequest) TableName() string {
	return "extra_charge_requests"
}
