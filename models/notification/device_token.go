package notification

import (
	"time"
)

// DeviceToken is one registered push target for a user. The raw token is
// stored AES-encrypted; TokenHash exists to deduplicate registrations
// without decrypting every row.
type DeviceToken struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	UserID uint `gorm:"not null;index" json:"user_id"`

	TokenEnc  string `gorm:"type:text;not null" json:"-"`
	TokenHash string `gorm:"type:varchar(128);not null;uniqueIndex" json:"-"`
	Platform  string `gorm:"type:varchar(20);not null" json:"platform"`

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the DeviceToken model
func (DeviceToken) TableName() string {
	return "device_tokens"
}
