package setting

import (
	"repair-ops/types"
)

// SettingPutRequest creates or updates a typed key/value setting.
type SettingPutRequest struct {
	Key   string `json:"key" validate:"required,min=1,max=100"`
	Value string `json:"value"`
	Type  string `json:"type" validate:"required,oneof=string boolean integer"`
}

func (r SettingPutRequest) Validate() error {
	return types.ValidateStruct(r)
}

// NoticeCreateRequest publishes a site notice.
type NoticeCreateRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=255"`
	Body      string `json:"body" validate:"required,min=1"`
	Pinned    bool   `json:"pinned"`
	Published bool   `json:"published"`
}

func (r NoticeCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

// NoticeUpdateRequest patches a notice. Absent fields keep their value.
type NoticeUpdateRequest struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Body      *string `json:"body,omitempty" validate:"omitempty,min=1"`
	Pinned    *bool   `json:"pinned,omitempty"`
	Published *bool   `json:"published,omitempty"`
}

func (r NoticeUpdateRequest) Validate() error {
	return types.ValidateStruct(r)
}
