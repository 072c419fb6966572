package notice

import (
	"time"
)

// Notice is one customer-facing announcement managed from the admin console.
type Notice struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	Body      string `gorm:"type:text;not null" json:"body"`
	Pinned    bool   `gorm:"not null;default:false" json:"pinned"`
	Published bool   `gorm:"not null;default:true" json:"published"`

	CreatedBy string     `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
