package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"repair-ops/cache"
	"repair-ops/httpServices/videostore"
	"repair-ops/jobqueue"
	"repair-ops/logger"
	mediaModel "repair-ops/models/media"
	"repair-ops/models/setting"
	"repair-ops/objectstorage"
	"repair-ops/types"
	mediaTypes "repair-ops/types/media"
	"repair-ops/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	uploadSessionKeyPrefix = "upload_session:"
	uploadSessionTTL       = 24 * time.Hour
)

// uploadSession is the server-side metadata of a resumable upload, parked
// in Redis between chunks.
type uploadSession struct {
	WaybillNo  string `json:"waybill_no"`
	Type       string `json:"type"`
	FileName   string `json:"file_name"`
	TotalSize  int64  `json:"total_size"`
	Offset     int64  `json:"offset"`
	UploadedBy string `json:"uploaded_by"`
}

// MediaController handles the video evidence pipeline: uploads to the video
// store, metadata rows keyed by waybill number, and merge jobs.
type MediaController struct {
	DB            *gorm.DB
	Logger        *logger.AsyncLogger
	VideoStore    *videostore.Client
	ObjectStorage *objectstorage.Client
	Queue         *jobqueue.Queue
}

// NewMediaController creates a new media controller
func NewMediaController(db *gorm.DB, asyncLogger *logger.AsyncLogger, videoStore *videostore.Client, objectStorage *objectstorage.Client, queue *jobqueue.Queue) *MediaController {
	return &MediaController{
		DB:            db,
		Logger:        asyncLogger,
		VideoStore:    videoStore,
		ObjectStorage: objectStorage,
		Queue:         queue,
	}
}

func (mc *MediaController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	mc.Logger.Log(utils.CreateSanitizedLogEntry(c))
	return result
}

// nextSeq returns the next sequence number for a waybill/type pair.
func (mc *MediaController) nextSeq(waybillNo string, mediaType mediaModel.MediaType) int {
	var max int
	mc.DB.Model(&mediaModel.Media{}).
		Where("waybill_no = ? AND type = ? AND deleted_at IS NULL", waybillNo, mediaType).
		Select("COALESCE(MAX(seq), 0)").Scan(&max)
	return max + 1
}

// Upload pushes a whole video in one multipart request.
func (mc *MediaController) Upload(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	waybillNo := c.FormValue("waybill_no")
	mediaType := mediaModel.MediaType(c.FormValue("type"))
	if waybillNo == "" || !mediaType.IsValid() || mediaType == mediaModel.TypeMerged {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "waybill_no and a type of INBOUND, OUTBOUND or WORK are required",
			Status:  fiber.StatusBadRequest,
		})
	}

	file, err := c.FormFile("video")
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "No video file provided",
			Status:  fiber.StatusBadRequest,
		})
	}

	src, err := file.Open()
	if err != nil {
		logger.Error("Failed to open uploaded video", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to process uploaded file",
			Status:  fiber.StatusInternalServerError,
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		logger.Error("Failed to read uploaded video", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to read uploaded file",
			Status:  fiber.StatusInternalServerError,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	result, err := mc.VideoStore.DirectUpload(file.Filename, contentType, data)
	if err != nil {
		logger.Error("Video store upload failed", err)
		return mc.sendResponseWithLog(c, fiber.StatusBadGateway, types.ApiResponse{
			Success: false,
			Message: "Video store upload failed",
			Status:  fiber.StatusBadGateway,
		})
	}

	row := mediaModel.Media{
		WaybillNo:   waybillNo,
		Type:        mediaType,
		Provider:    mediaModel.ProviderVideoStore,
		StoragePath: result.StoragePath,
		Seq:         mc.nextSeq(waybillNo, mediaType),
		DurationSec: result.DurationSec,
		SizeBytes:   result.SizeBytes,
		UploadedBy:  actor.Uuid,
	}
	if err := mc.DB.Create(&row).Error; err != nil {
		logger.Error("Failed to record uploaded media", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Upload succeeded but could not be recorded",
			Status:  fiber.StatusInternalServerError,
		})
	}

	logger.Success(fmt.Sprintf("Video uploaded for waybill %s (%s, seq %d)", waybillNo, mediaType, row.Seq))
	return mc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Video uploaded",
		Status:  fiber.StatusCreated,
		Data:    row,
	})
}

// CreateResumable opens a chunked upload session.
func (mc *MediaController) CreateResumable(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	var req mediaTypes.ResumableCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	session, err := mc.VideoStore.CreateResumableUpload(req.FileName, req.TotalSize)
	if err != nil {
		logger.Error("Failed to open resumable upload", err)
		return mc.sendResponseWithLog(c, fiber.StatusBadGateway, types.ApiResponse{
			Success: false,
			Message: "Video store refused the upload session",
			Status:  fiber.StatusBadGateway,
		})
	}

	meta := uploadSession{
		WaybillNo:  req.WaybillNo,
		Type:       req.Type,
		FileName:   req.FileName,
		TotalSize:  req.TotalSize,
		UploadedBy: actor.Uuid,
	}
	if err := mc.saveSession(session.UploadID, &meta); err != nil {
		logger.Error("Failed to park upload session", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to track upload session",
			Status:  fiber.StatusInternalServerError,
		})
	}

	c.Set("Upload-Offset", "0")
	return mc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Upload session created",
		Status:  fiber.StatusCreated,
		Data: fiber.Map{
			"upload_id":  session.UploadID,
			"offset":     0,
			"total_size": req.TotalSize,
		},
	})
}

// UploadChunk appends one chunk at the offset in the Upload-Offset header.
// An offset that disagrees with the session state answers 409 together with
// the expected offset so the client can resume.
func (mc *MediaController) UploadChunk(c *fiber.Ctx) error {
	uploadID := c.Params("id")

	meta, err := mc.loadSession(uploadID)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Upload session not found or expired",
			Status:  fiber.StatusNotFound,
		})
	}

	offset, err := strconv.ParseInt(c.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Upload-Offset header is required",
			Status:  fiber.StatusBadRequest,
		})
	}
	if offset != meta.Offset {
		c.Set("Upload-Offset", strconv.FormatInt(meta.Offset, 10))
		return mc.sendResponseWithLog(c, fiber.StatusConflict, types.ApiResponse{
			Success: false,
			Message: fmt.Sprintf("Offset mismatch: expected %d, got %d", meta.Offset, offset),
			Status:  fiber.StatusConflict,
			Data:    fiber.Map{"offset": meta.Offset},
		})
	}

	chunk := c.Body()
	if len(chunk) == 0 {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Empty chunk",
			Status:  fiber.StatusBadRequest,
		})
	}

	next, err := mc.VideoStore.UploadChunk(uploadID, offset, chunk)
	if err != nil {
		logger.Error("Chunk upload failed", err)
		status := fiber.StatusBadGateway
		if strings.Contains(err.Error(), "offset mismatch") {
			status = fiber.StatusConflict
		}
		return mc.sendResponseWithLog(c, status, types.ApiResponse{
			Success: false,
			Message: "Chunk upload failed",
			Status:  status,
		})
	}

	meta.Offset = next
	if err := mc.saveSession(uploadID, meta); err != nil {
		logger.Error("Failed to advance upload session", err)
	}

	c.Set("Upload-Offset", strconv.FormatInt(next, 10))
	return mc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Chunk accepted",
		Status:  fiber.StatusOK,
		Data:    fiber.Map{"offset": next},
	})
}

// CompleteResumable finalizes a fully-uploaded session and records the
// media row.
func (mc *MediaController) CompleteResumable(c *fiber.Ctx) error {
	uploadID := c.Params("id")

	meta, err := mc.loadSession(uploadID)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Upload session not found or expired",
			Status:  fiber.StatusNotFound,
		})
	}
	if meta.Offset < meta.TotalSize {
		return mc.sendResponseWithLog(c, fiber.StatusUnprocessableEntity, types.ApiResponse{
			Success: false,
			Message: fmt.Sprintf("Upload incomplete: %d of %d bytes received", meta.Offset, meta.TotalSize),
			Status:  fiber.StatusUnprocessableEntity,
		})
	}

	result, err := mc.VideoStore.CompleteResumableUpload(uploadID)
	if err != nil {
		logger.Error("Failed to complete resumable upload", err)
		return mc.sendResponseWithLog(c, fiber.StatusBadGateway, types.ApiResponse{
			Success: false,
			Message: "Video store failed to finalize the upload",
			Status:  fiber.StatusBadGateway,
		})
	}

	mediaType := mediaModel.MediaType(meta.Type)
	row := mediaModel.Media{
		WaybillNo:   meta.WaybillNo,
		Type:        mediaType,
		Provider:    mediaModel.ProviderVideoStore,
		StoragePath: result.StoragePath,
		Seq:         mc.nextSeq(meta.WaybillNo, mediaType),
		DurationSec: result.DurationSec,
		SizeBytes:   result.SizeBytes,
		UploadedBy:  meta.UploadedBy,
	}
	if err := mc.DB.Create(&row).Error; err != nil {
		logger.Error("Failed to record completed upload", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Upload completed but could not be recorded",
			Status:  fiber.StatusInternalServerError,
		})
	}

	mc.dropSession(uploadID)

	logger.Success(fmt.Sprintf("Resumable upload %s completed for waybill %s", uploadID, meta.WaybillNo))
	return mc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Success: true,
		Message: "Upload completed",
		Status:  fiber.StatusCreated,
		Data:    row,
	})
}

// Index lists the videos of one waybill with playback URLs.
func (mc *MediaController) Index(c *fiber.Ctx) error {
	waybillNo := c.Query("waybill_no")
	if waybillNo == "" {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "waybill_no query parameter is required",
			Status:  fiber.StatusBadRequest,
		})
	}

	var rows []mediaModel.Media
	if err := mc.DB.Where("waybill_no = ? AND deleted_at IS NULL", waybillNo).
		Order("type, seq").Find(&rows).Error; err != nil {
		logger.Error("Failed to list media", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to list media",
			Status:  fiber.StatusInternalServerError,
		})
	}

	items := make([]fiber.Map, 0, len(rows))
	for _, m := range rows {
		items = append(items, fiber.Map{
			"media": m,
			"url":   mc.publicURL(&m),
		})
	}

	return mc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Media listed",
		Status:  fiber.StatusOK,
		Data:    items,
	})
}

func (mc *MediaController) publicURL(m *mediaModel.Media) string {
	if m.Provider == mediaModel.ProviderObjectStorage && mc.ObjectStorage != nil {
		return mc.ObjectStorage.PublicURL(m.StoragePath)
	}
	return mc.VideoStore.PublicURL(m.StoragePath)
}

// Delete soft-deletes a media row and best-effort removes the stored bytes.
func (mc *MediaController) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid media id",
			Status:  fiber.StatusBadRequest,
		})
	}

	var row mediaModel.Media
	err = mc.DB.Where("id = ? AND deleted_at IS NULL", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Media not found",
			Status:  fiber.StatusNotFound,
		})
	}
	if err != nil {
		logger.Error("Failed to load media", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to delete media",
			Status:  fiber.StatusInternalServerError,
		})
	}

	// Removing remote bytes is best-effort; the row is the authority.
	switch row.Provider {
	case mediaModel.ProviderVideoStore:
		if err := mc.VideoStore.Delete(row.StoragePath); err != nil {
			logger.Warning(fmt.Sprintf("Video store delete failed for media %d: %v", row.ID, err))
		}
	case mediaModel.ProviderObjectStorage:
		if mc.ObjectStorage != nil {
			if err := mc.ObjectStorage.Delete(row.StoragePath); err != nil {
				logger.Warning(fmt.Sprintf("Object storage delete failed for media %d: %v", row.ID, err))
			}
		}
	}

	now := time.Now()
	if err := mc.DB.Model(&row).Update("deleted_at", now).Error; err != nil {
		logger.Error("Failed to soft-delete media", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to delete media",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return mc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Success: true,
		Message: "Media deleted",
		Status:  fiber.StatusOK,
	})
}

// Merge validates the two source clips and enqueues a background merge job.
func (mc *MediaController) Merge(c *fiber.Ctx) error {
	actor, err := utils.CurrentUser(c)
	if err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusUnauthorized, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusUnauthorized,
		})
	}

	if !setting.GetBool(mc.DB, setting.KeyMergeEnabled, true) {
		return mc.sendResponseWithLog(c, fiber.StatusServiceUnavailable, types.ApiResponse{
			Success: false,
			Message: "Video merging is disabled",
			Status:  fiber.StatusServiceUnavailable,
		})
	}

	var req mediaTypes.MergeCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: "Invalid request body",
			Status:  fiber.StatusBadRequest,
		})
	}
	if err := req.Validate(); err != nil {
		return mc.sendResponseWithLog(c, fiber.StatusBadRequest, types.ApiResponse{
			Success: false,
			Message: err.Error(),
			Status:  fiber.StatusBadRequest,
		})
	}

	var count int64
	if err := mc.DB.Model(&mediaModel.Media{}).
		Where("id IN ? AND waybill_no = ? AND deleted_at IS NULL AND type <> ?",
			[]uint{req.FirstMediaID, req.SecondMediaID}, req.WaybillNo, mediaModel.TypeMerged).
		Count(&count).Error; err != nil {
		logger.Error("Failed to validate merge sources", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to validate merge sources",
			Status:  fiber.StatusInternalServerError,
		})
	}
	if count != 2 {
		return mc.sendResponseWithLog(c, fiber.StatusNotFound, types.ApiResponse{
			Success: false,
			Message: "Both source videos must exist under the given waybill",
			Status:  fiber.StatusNotFound,
		})
	}

	payload := jobqueue.VideoMergeJobPayload{
		WaybillNo:     req.WaybillNo,
		FirstMediaID:  req.FirstMediaID,
		SecondMediaID: req.SecondMediaID,
		RequestedBy:   actor.Uuid,
	}
	jobID, err := mc.Queue.Enqueue(jobqueue.JobTypeVideoMerge, payload.ToMap())
	if err != nil {
		logger.Error("Failed to enqueue merge job", err)
		return mc.sendResponseWithLog(c, fiber.StatusInternalServerError, types.ApiResponse{
			Success: false,
			Message: "Failed to enqueue merge job",
			Status:  fiber.StatusInternalServerError,
		})
	}

	return mc.sendResponseWithLog(c, fiber.StatusAccepted, types.ApiResponse{
		Success: true,
		Message: "Merge job queued",
		Status:  fiber.StatusAccepted,
		Data:    fiber.Map{"job_id": jobID},
	})
}

func (mc *MediaController) saveSession(uploadID string, meta *uploadSession) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return cache.GetClient().Set(context.Background(), uploadSessionKeyPrefix+uploadID, data, uploadSessionTTL).Err()
}

func (mc *MediaController) loadSession(uploadID string) (*uploadSession, error) {
	data, err := cache.GetClient().Get(context.Background(), uploadSessionKeyPrefix+uploadID).Result()
	if err != nil {
		return nil, err
	}
	var meta uploadSession
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (mc *MediaController) dropSession(uploadID string) {
	if err := cache.GetClient().Del(context.Background(), uploadSessionKeyPrefix+uploadID).Err(); err != nil && err != redis.Nil {
		logger.Warning(fmt.Sprintf("Failed to drop upload session %s: %v", uploadID, err))
	}
}
