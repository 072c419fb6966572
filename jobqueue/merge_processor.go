package jobqueue

import (
	"fmt"

	"repair-ops/httpServices/mergeworker"
	"repair-ops/httpServices/videostore"
	"repair-ops/logger"
	"repair-ops/models/media"
	"repair-ops/objectstorage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoMergeProcessor concatenates an inbound and outbound clip for one
// waybill into a single object-storage video and records it as a MERGED
// media row.
type VideoMergeProcessor struct {
	DB            *gorm.DB
	VideoStore    *videostore.Client
	MergeWorker   *mergeworker.Client
	ObjectStorage *objectstorage.Client
}

func NewVideoMergeProcessor(db *gorm.DB, vs *videostore.Client, mw *mergeworker.Client, os *objectstorage.Client) *VideoMergeProcessor {
	return &VideoMergeProcessor{
		DB:            db,
		VideoStore:    vs,
		MergeWorker:   mw,
		ObjectStorage: os,
	}
}

func (p *VideoMergeProcessor) Process(job *Job) error {
	payload, err := VideoMergeJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid video merge payload: %w", err)
	}

	first, err := p.loadSource(payload.FirstMediaID, payload.WaybillNo)
	if err != nil {
		return err
	}
	second, err := p.loadSource(payload.SecondMediaID, payload.WaybillNo)
	if err != nil {
		return err
	}

	outputKey := fmt.Sprintf("merged/%s/%s.mp4", payload.WaybillNo, uuid.NewString())
	result, err := p.MergeWorker.Merge(mergeworker.MergeRequest{
		FirstURL:  p.sourceURL(first),
		SecondURL: p.sourceURL(second),
		OutputKey: outputKey,
	})
	if err != nil {
		return fmt.Errorf("merge worker failed for waybill %s: %w", payload.WaybillNo, err)
	}

	sizeBytes := result.SizeBytes
	if p.ObjectStorage != nil {
		// The worker's size report is advisory; trust the bucket if reachable.
		if size, headErr := p.ObjectStorage.Head(result.ObjectKey); headErr == nil {
			sizeBytes = size
		} else {
			logger.Warning(fmt.Sprintf("Merged object %s not verifiable: %v", result.ObjectKey, headErr))
		}
	}

	merged := media.Media{
		WaybillNo:   payload.WaybillNo,
		Type:        media.TypeMerged,
		Provider:    media.ProviderObjectStorage,
		StoragePath: result.ObjectKey,
		Seq:         1,
		DurationSec: result.DurationSec,
		SizeBytes:   sizeBytes,
		UploadedBy:  payload.RequestedBy,
	}
	if err := p.DB.Create(&merged).Error; err != nil {
		return fmt.Errorf("failed to record merged media: %w", err)
	}

	logger.Success(fmt.Sprintf("Merged videos for waybill %s into %s", payload.WaybillNo, result.ObjectKey))
	return nil
}

func (p *VideoMergeProcessor) loadSource(id uint, waybillNo string) (*media.Media, error) {
	var m media.Media
	if err := p.DB.Where("id = ? AND waybill_no = ? AND deleted_at IS NULL", id, waybillNo).First(&m).Error; err != nil {
		return nil, fmt.Errorf("source media %d for waybill %s not found: %w", id, waybillNo, err)
	}
	if m.Type == media.TypeMerged {
		return nil, fmt.Errorf("media %d is already a merged video", id)
	}
	return &m, nil
}

func (p *VideoMergeProcessor) sourceURL(m *media.Media) string {
	if m.Provider == media.ProviderObjectStorage && p.ObjectStorage != nil {
		return p.ObjectStorage.PublicURL(m.StoragePath)
	}
	return p.VideoStore.PublicURL(m.StoragePath)
}
