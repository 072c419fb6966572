package order

import (
	"time"
)

// OrderStatusEvent records one lifecycle transition of an order.
type OrderStatusEvent struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	OrderID uint  `gorm:"not null;index" json:"order_id"`
	Order   Order `gorm:"foreignKey:OrderID" json:"order"`

	FromStatus OrderStatus `gorm:"type:varchar(30);not null" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:varchar(30);not null" json:"to_status"`
	CreatedBy  string      `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the OrderStatusEvent model
func (OrderStatusEvent) TableName() string {
	return "order_status_events"
}
