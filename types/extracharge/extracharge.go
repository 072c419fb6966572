package extracharge

import (
	"fmt"

	"repair-ops/types"
)

// ExtraChargeCreateRequest opens an extra-charge ask on an order. Workers
// omit the price; managers and admins must supply one.
type ExtraChargeCreateRequest struct {
	OrderID uint   `json:"order_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,min=1"`
	Price   *int   `json:"price,omitempty"`
}

func (r ExtraChargeCreateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.Price != nil && *r.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

// ExtraChargeReviewRequest is the manager decision payload.
type ExtraChargeReviewRequest struct {
	Action string  `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Price  *int    `json:"price,omitempty"`
	Note   *string `json:"note,omitempty"`
}

func (r ExtraChargeReviewRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.Action == "APPROVE" && (r.Price == nil || *r.Price <= 0) {
		return fmt.Errorf("a positive price is required to approve")
	}
	return nil
}

// ExtraChargeRespondRequest is the customer answer payload.
type ExtraChargeRespondRequest struct {
	Answer string `json:"answer" validate:"required,oneof=ACCEPTED REJECTED"`
}

func (r ExtraChargeRespondRequest) Validate() error {
	return types.ValidateStruct(r)
}
