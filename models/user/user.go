package user

import (
	"time"
)

// User covers both staff accounts and customers. Role decides which routes a
// token can reach; the cached point columns are only ever written by the
// points service.
type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid         string  `gorm:"type:varchar(255);not null;unique" json:"uuid"`
	Username     string  `gorm:"type:varchar(255);not null;unique" json:"username"`
	PasswordHash string  `gorm:"type:varchar(255);not null" json:"-"`
	LegalName    string  `gorm:"type:varchar(255);not null" json:"legal_name"`
	Phone        string  `gorm:"type:varchar(20);not null;unique" json:"phone"`
	Email        *string `gorm:"type:varchar(255);unique" json:"email,omitempty"`
	Role         string  `gorm:"type:varchar(30);not null;index" json:"role"`

	// Loyalty point caches, kept consistent with the point_transactions
	// ledger by services/points. Never mutate these directly.
	PointBalance      int `gorm:"not null;default:0" json:"point_balance"`
	TotalEarnedPoints int `gorm:"not null;default:0" json:"total_earned_points"`
	TotalUsedPoints   int `gorm:"not null;default:0" json:"total_used_points"`

	CreatedByID *uint `gorm:"index" json:"created_by_id,omitempty"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"created_by,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// IsStaff reports whether the user belongs to the operations side.
func (u *User) IsStaff() bool {
	switch u.Role {
	case "SUPER_ADMIN", "ADMIN", "MANAGER", "WORKER":
		return true
	default:
		return false
	}
}
