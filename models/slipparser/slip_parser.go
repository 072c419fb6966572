package slipparser

import (
	"time"

	"gorm.io/gorm"
)

// SlipParserRequest tracks one courier waybill slip OCR request.
type SlipParserRequest struct {
	ID               uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID        string `json:"request_id" gorm:"type:varchar(24);uniqueIndex;not null"`
	OriginalFileName string `json:"original_file_name" gorm:"type:varchar(255);not null"`
	SavedFileName    string `json:"saved_file_name" gorm:"type:varchar(255)"`
	FileHash         string `json:"file_hash" gorm:"type:varchar(128);index"`
	FilePath         string `json:"file_path" gorm:"type:varchar(500)"`
	FileSize         int64  `json:"file_size" gorm:"not null"`
	MimeType         string `json:"mime_type" gorm:"type:varchar(100);not null"`
	Status           string `json:"status" gorm:"type:varchar(50);not null;default:'processing';index"` // processing, success, failed
	ProcessingTimeMs int64  `json:"processing_time_ms" gorm:"default:0"`

	// Parsed data fields
	WaybillNo     string `json:"waybill_no" gorm:"type:varchar(60);index;default:''"`
	Courier       string `json:"courier" gorm:"type:varchar(100);default:''"`
	SenderName    string `json:"sender_name" gorm:"type:varchar(255);default:''"`
	ReceiverName  string `json:"receiver_name" gorm:"type:varchar(255);default:''"`
	ReceiverPhone string `json:"receiver_phone" gorm:"type:varchar(20);default:''"`

	ErrorMessage string `json:"error_message" gorm:"type:text;default:''"`

	IPAddress string `json:"ip_address" gorm:"type:varchar(45);index;default:''"`
	UserAgent string `json:"user_agent" gorm:"type:text;default:''"`

	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for SlipParserRequest
func (SlipParserRequest) TableName() string {
	return "slip_parser_requests"
}

// BeforeCreate hook to set default values
func (spr *SlipParserRequest) BeforeCreate(tx *gorm.DB) error {
	if spr.Status == "" {
		spr.Status = "processing"
	}
	return nil
}

// MarkAsSuccess marks the request as successful and saves parsed data
func (spr *SlipParserRequest) MarkAsSuccess(db *gorm.DB, parsedData *SlipParserResponse) error {
	spr.Status = "success"
	spr.WaybillNo = parsedData.WaybillNo
	spr.Courier = parsedData.Courier
	spr.SenderName = parsedData.SenderName
	spr.ReceiverName = parsedData.ReceiverName
	spr.ReceiverPhone = parsedData.ReceiverPhone
	spr.ProcessingTimeMs = parsedData.ProcessingTimeMs

	return db.Save(spr).Error
}

// MarkAsFailed marks the request as failed with error message
func (spr *SlipParserRequest) MarkAsFailed(db *gorm.DB, errorMsg string, processingTime int64) error {
	spr.Status = "failed"
	spr.ErrorMessage = errorMsg
	spr.ProcessingTimeMs = processingTime

	return db.Save(spr).Error
}

// SlipParserResponse represents the parsed data response
type SlipParserResponse struct {
	RequestID        string `json:"request_id"`
	WaybillNo        string `json:"waybill_no"`
	Courier          string `json:"courier"`
	SenderName       string `json:"sender_name"`
	ReceiverName     string `json:"receiver_name"`
	ReceiverPhone    string `json:"receiver_phone"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}
