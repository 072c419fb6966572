package videostore

// UploadResult is the video store's answer to a completed upload.
type UploadResult struct {
	VideoID     string  `json:"video_id"`
	StoragePath string  `json:"storage_path"`
	DurationSec float64 `json:"duration_sec"`
	SizeBytes   int64   `json:"size_bytes"`
}

// UploadSession tracks one resumable upload on the video store side.
type UploadSession struct {
	UploadID  string `json:"upload_id"`
	Location  string `json:"location"`
	Offset    int64  `json:"offset"`
	TotalSize int64  `json:"total_size"`
}
