package media

import (
	"fmt"

	mediaModel "repair-ops/models/media"
	"repair-ops/types"
)

// ResumableCreateRequest opens a chunked upload session for one video.
type ResumableCreateRequest struct {
	WaybillNo string `json:"waybill_no" validate:"required,min=1,max=60"`
	Type      string `json:"type" validate:"required"`
	FileName  string `json:"file_name" validate:"required,min=1,max=255"`
	TotalSize int64  `json:"total_size" validate:"required,gt=0"`
}

func (r ResumableCreateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	t := mediaModel.MediaType(r.Type)
	if !t.IsValid() || t == mediaModel.TypeMerged {
		return fmt.Errorf("type must be one of INBOUND, OUTBOUND, WORK")
	}
	return nil
}

// MergeCreateRequest asks for two uploaded clips of one waybill to be
// merged into a single video.
type MergeCreateRequest struct {
	WaybillNo     string `json:"waybill_no" validate:"required,min=1,max=60"`
	FirstMediaID  uint   `json:"first_media_id" validate:"required"`
	SecondMediaID uint   `json:"second_media_id" validate:"required"`
}

func (r MergeCreateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.FirstMediaID == r.SecondMediaID {
		return fmt.Errorf("first_media_id and second_media_id must differ")
	}
	return nil
}
