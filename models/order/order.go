package order

import (
	"time"

	"repair-ops/models/user"
)

// Order is one repair job. TotalPrice is the authoritative amount for the
// base payment; extra charges carry their own amount on the request row.
type Order struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	OrderNo string `gorm:"type:varchar(40);not null;unique" json:"order_no"`

	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Customer   user.User `gorm:"foreignKey:CustomerID" json:"customer"`

	ItemName    string `gorm:"type:varchar(255);not null" json:"item_name"`
	Description string `gorm:"type:text" json:"description"`
	TotalPrice  int    `gorm:"not null" json:"total_price"`

	Status            OrderStatus       `gorm:"type:varchar(30);not null;index" json:"status"`
	ExtraChargeStatus ExtraChargeStatus `gorm:"type:varchar(30);not null;default:NONE" json:"extra_charge_status"`

	// Shipment correlation keys. Uploaded videos are keyed by these waybill
	// numbers, not the order id.
	InboundWaybillNo  *string `gorm:"type:varchar(60);index" json:"inbound_waybill_no,omitempty"`
	OutboundWaybillNo *string `gorm:"type:varchar(60);index" json:"outbound_waybill_no,omitempty"`

	PaymentKey *string    `gorm:"type:varchar(200)" json:"payment_key,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`

	CreatedBy string     `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedBy string     `gorm:"type:varchar(255)" json:"updated_by,omitempty"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
