package points

import (
	"fmt"

	"repair-ops/types"
)

// PointAdjustRequest credits or debits a user's point balance by an admin
// decision. Amount is signed and must be non-zero.
type PointAdjustRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Amount int    `json:"amount"`
	Reason string `json:"reason" validate:"required,min=1,max=255"`
}

func (r PointAdjustRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.Amount == 0 {
		return fmt.Errorf("amount must be non-zero")
	}
	return nil
}
