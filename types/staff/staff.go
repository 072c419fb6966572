package staff

import (
	"fmt"

	"repair-ops/constants"
	"repair-ops/types"
)

// StaffCreateRequest is the payload for creating a staff account.
type StaffCreateRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=255"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	LegalName string  `json:"legal_name" validate:"required,min=1,max=255"`
	Phone     string  `json:"phone" validate:"required,min=5,max=20"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Role      string  `json:"role" validate:"required"`
}

func (r StaffCreateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if !constants.IsValidRole(r.Role) || r.Role == constants.RoleCustomer {
		return fmt.Errorf("role must be a staff role")
	}
	return nil
}

// StaffUpdateRequest is the payload for PATCHing a staff account. All fields
// are optional; absent fields keep their current value.
type StaffUpdateRequest struct {
	LegalName *string `json:"legal_name,omitempty" validate:"omitempty,min=1,max=255"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Role      *string `json:"role,omitempty"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

func (r StaffUpdateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.Role != nil {
		if !constants.IsValidRole(*r.Role) || *r.Role == constants.RoleCustomer {
			return fmt.Errorf("role must be a staff role")
		}
	}
	return nil
}
