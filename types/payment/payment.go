package payment

import (
	"fmt"

	"repair-ops/types"
)

// PaymentConfirmRequest captures an authorized gateway payment. OrderRef is
// either an order number or "EXTRA-<id>" for an extra-charge request.
type PaymentConfirmRequest struct {
	PaymentKey string `json:"payment_key" validate:"required,min=1,max=200"`
	OrderRef   string `json:"order_ref" validate:"required,min=1,max=64"`
	Amount     int    `json:"amount" validate:"required,gt=0"`
}

func (r PaymentConfirmRequest) Validate() error {
	return types.ValidateStruct(r)
}

// PaymentCancelRequest cancels a captured payment, fully or partially.
type PaymentCancelRequest struct {
	CancelReason string `json:"cancel_reason" validate:"required,min=1,max=255"`
	CancelAmount *int   `json:"cancel_amount,omitempty"`
}

func (r PaymentCancelRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.CancelAmount != nil && *r.CancelAmount <= 0 {
		return fmt.Errorf("cancel_amount must be positive")
	}
	return nil
}
