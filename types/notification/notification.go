package notification

import (
	"repair-ops/types"
)

// DeviceTokenRequest registers (or removes) a push device token.
type DeviceTokenRequest struct {
	Token    string `json:"token" validate:"required,min=1"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

func (r DeviceTokenRequest) Validate() error {
	return types.ValidateStruct(r)
}
