package actionlog

import (
	"time"
)

// ActionLog is one audit row for a staff/customer action. Inserts are
// best-effort: a failed audit write never fails the request that caused it.
type ActionLog struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	ActorID    uint   `gorm:"not null;index" json:"actor_id"`
	ActorRole  string `gorm:"type:varchar(30);not null" json:"actor_role"`
	ActionType string `gorm:"type:varchar(50);not null;index" json:"action_type"`
	OrderID    *uint  `gorm:"index" json:"order_id,omitempty"`
	Detail     string `gorm:"type:text" json:"detail"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the ActionLog model
func (ActionLog) TableName() string {
	return "action_logs"
}
