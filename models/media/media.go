package media

import (
	"time"
)

// MediaType says which leg of the shipment a video documents.
type MediaType string

const (
	TypeInbound  MediaType = "INBOUND"
	TypeOutbound MediaType = "OUTBOUND"
	TypeWork     MediaType = "WORK"
	TypeMerged   MediaType = "MERGED"
)

func (mt MediaType) IsValid() bool {
	switch mt {
	case TypeInbound, TypeOutbound, TypeWork, TypeMerged:
		return true
	default:
		return false
	}
}

// Provider says where the bytes live.
type Provider string

const (
	ProviderVideoStore    Provider = "VIDEO_STORE"
	ProviderObjectStorage Provider = "OBJECT_STORAGE"
)

// Media is one uploaded (or merged) video. Rows are keyed by the shipment
// waybill number, not the order id.
type Media struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	WaybillNo string    `gorm:"type:varchar(60);not null;index" json:"waybill_no"`
	Type      MediaType `gorm:"type:varchar(20);not null" json:"type"`
	Provider  Provider  `gorm:"type:varchar(20);not null" json:"provider"`

	StoragePath string  `gorm:"type:varchar(500);not null" json:"storage_path"`
	Seq         int     `gorm:"not null;default:1" json:"seq"`
	DurationSec float64 `json:"duration_sec"`
	SizeBytes   int64   `json:"size_bytes"`

	UploadedBy string     `gorm:"type:varchar(255);not null" json:"uploaded_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt  *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName sets the table name for the Media model
func (Media) TableName() string {
	return "media"
}
