package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeVideoMerge JobType = "video_merge"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// VideoMergeJobPayload contains the payload for video merge jobs
type VideoMergeJobPayload struct {
	WaybillNo     string `json:"waybill_no"`
	FirstMediaID  uint   `json:"first_media_id"`
	SecondMediaID uint   `json:"second_media_id"`
	RequestedBy   string `json:"requested_by"`
}

// ToMap converts the payload to a map for storage
func (p VideoMergeJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"waybill_no":      p.WaybillNo,
		"first_media_id":  p.FirstMediaID,
		"second_media_id": p.SecondMediaID,
		"requested_by":    p.RequestedBy,
	}
}

// VideoMergeJobPayloadFromMap creates a payload from a map
func VideoMergeJobPayloadFromMap(data map[string]interface{}) (*VideoMergeJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload VideoMergeJobPayload
	if err := json.Unmarshal(jsonData, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
