package auth

import (
	"repair-ops/types"
)

// LoginRequest is the credential payload for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=1"`
}

func (r LoginRequest) Validate() error {
	return types.ValidateStruct(r)
}

// ChangePasswordRequest is the payload for changing the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (r ChangePasswordRequest) Validate() error {
	return types.ValidateStruct(r)
}
