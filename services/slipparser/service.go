package slipparser

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"repair-ops/logger"
	"repair-ops/models/slipparser"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SlipParserService tracks waybill slip OCR requests and archives the
// uploaded slip images on disk.
type SlipParserService struct {
	DB        *gorm.DB
	UploadDir string
}

// NewSlipParserService creates a new slip parser service
func NewSlipParserService(db *gorm.DB) *SlipParserService {
	return &SlipParserService{
		DB:        db,
		UploadDir: "uploaded_slips",
	}
}

// GenerateRequestID generates a 24 character unique request ID
func (s *SlipParserService) GenerateRequestID() string {
	bytes := make([]byte, 12)
	rand.Read(bytes)
	requestID := hex.EncodeToString(bytes)

	// Timestamp prefix keeps IDs sortable and collision-resistant.
	timestamp := time.Now().Unix()
	return fmt.Sprintf("%06x%s", timestamp&0xffffff, requestID[:18])
}

// CreateInitialRequest records an OCR request before any processing starts.
func (s *SlipParserService) CreateInitialRequest(c *fiber.Ctx, requestID, originalFileName string, fileSize int64, mimeType string) (*slipparser.SlipParserRequest, error) {
	ipAddress := c.IP()
	if ipAddress == "" {
		ipAddress = "unknown"
	}

	request := &slipparser.SlipParserRequest{
		RequestID:        requestID,
		OriginalFileName: originalFileName,
		FileSize:         fileSize,
		MimeType:         mimeType,
		Status:           "processing",
		IPAddress:        ipAddress,
		UserAgent:        c.Get("User-Agent"),
	}

	if err := s.DB.Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create initial request: %w", err)
	}
	return request, nil
}

// SaveFileAsync archives the uploaded slip image without blocking the
// request path.
func (s *SlipParserService) SaveFileAsync(requestID string, fileBytes []byte, originalFileName string) {
	go func() {
		if err := s.saveFile(requestID, fileBytes, originalFileName); err != nil {
			logger.Error(fmt.Sprintf("Failed to save slip file for request %s", requestID), err)
			s.updateRequestWithFileError(requestID, err.Error())
		}
	}()
}

func (s *SlipParserService) saveFile(requestID string, fileBytes []byte, originalFileName string) error {
	if err := os.MkdirAll(s.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	hash := sha256.Sum256(fileBytes)
	fileHash := hex.EncodeToString(hash[:])

	ext := filepath.Ext(originalFileName)
	savedFileName := fmt.Sprintf("%s_%d%s", requestID, time.Now().Unix(), ext)
	filePath := filepath.Join(s.UploadDir, savedFileName)

	if err := os.WriteFile(filePath, fileBytes, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	updates := map[string]interface{}{
		"saved_file_name": savedFileName,
		"file_hash":       fileHash,
		"file_path":       filePath,
	}
	if err := s.DB.Model(&slipparser.SlipParserRequest{}).Where("request_id = ?", requestID).Updates(updates).Error; err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to update request with file info: %w", err)
	}

	logger.Success(fmt.Sprintf("Slip file saved for request %s: %s", requestID, savedFileName))
	return nil
}

// SaveSuccessResultAsync persists the parsed fields off the request path.
func (s *SlipParserService) SaveSuccessResultAsync(requestID string, result *slipparser.SlipParserResponse) {
	go func() {
		var request slipparser.SlipParserRequest
		if err := s.DB.Where("request_id = ?", requestID).First(&request).Error; err != nil {
			logger.Error(fmt.Sprintf("Failed to find slip request %s", requestID), err)
			return
		}
		if err := request.MarkAsSuccess(s.DB, result); err != nil {
			logger.Error(fmt.Sprintf("Failed to save parse result for request %s", requestID), err)
			return
		}
		logger.Success(fmt.Sprintf("Parse result saved for request %s", requestID))
	}()
}

// SaveFailureResultAsync records a parse failure off the request path.
func (s *SlipParserService) SaveFailureResultAsync(requestID, errorMsg string, processingTime int64) {
	go func() {
		var request slipparser.SlipParserRequest
		if err := s.DB.Where("request_id = ?", requestID).First(&request).Error; err != nil {
			logger.Error(fmt.Sprintf("Failed to find slip request %s", requestID), err)
			return
		}
		if err := request.MarkAsFailed(s.DB, errorMsg, processingTime); err != nil {
			logger.Error(fmt.Sprintf("Failed to save failure for request %s", requestID), err)
		}
	}()
}

func (s *SlipParserService) updateRequestWithFileError(requestID, errorMsg string) {
	updates := map[string]interface{}{
		"status":        "failed",
		"error_message": fmt.Sprintf("File saving error: %s", errorMsg),
	}
	if err := s.DB.Model(&slipparser.SlipParserRequest{}).Where("request_id = ?", requestID).Updates(updates).Error; err != nil {
		logger.Error(fmt.Sprintf("Failed to update slip request %s with file error", requestID), err)
	}
}

// GetRequestByID retrieves a request by its public ID.
func (s *SlipParserService) GetRequestByID(requestID string) (*slipparser.SlipParserRequest, error) {
	var request slipparser.SlipParserRequest
	if err := s.DB.Where("request_id = ?", requestID).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// CleanupOldFiles removes archived slip images older than the given days.
func (s *SlipParserService) CleanupOldFiles(daysOld int) error {
	cutoffDate := time.Now().AddDate(0, 0, -daysOld)

	var oldRequests []slipparser.SlipParserRequest
	if err := s.DB.Where("created_at < ? AND file_path != ''", cutoffDate).Find(&oldRequests).Error; err != nil {
		return err
	}

	for _, request := range oldRequests {
		if request.FilePath != "" {
			if err := os.Remove(request.FilePath); err != nil && !os.IsNotExist(err) {
				logger.Error(fmt.Sprintf("Failed to remove old slip file: %s", request.FilePath), err)
			}
		}
		if err := s.DB.Model(&request).Update("file_path", "").Error; err != nil {
			logger.Error(fmt.Sprintf("Failed to clear file path for request %s", request.RequestID), err)
		}
	}
	return nil
}
